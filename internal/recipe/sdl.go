package recipe

import (
	"encoding/json"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ParseSDL decodes the TOML-structured SDL recipe dialect (dub.sdl) into the
// same surface-agnostic IR as ParseJSON. Anvil's SDL surface mirrors dub's
// SDL in key names and nesting but adopts TOML's concrete grammar rather
// than a bespoke indentation-based one, so an existing TOML library
// (go-toml) can parse it.
func ParseSDL(b []byte) (*Recipe, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding SDL recipe")
	}

	// Bridge through JSON so the single JSON-object builder in json.go
	// remains the one place that knows the recipe field grammar.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "re-encoding SDL recipe")
	}
	var fields map[string]json.RawValue
	if err := json.Unmarshal(asJSON, &fields); err != nil {
		return nil, errors.Wrap(err, "re-decoding SDL recipe")
	}
	return parseJSONObject(fields)
}
