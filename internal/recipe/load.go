package recipe

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// recognizedNames lists recipe filenames in precedence order (spec §6).
var recognizedNames = []string{"dub.json", "dub.sdl", "package.json"}

// ErrNoRecipe is returned by Find when a directory contains none of the
// recognized recipe filenames.
var ErrNoRecipe = errors.New("no recipe file found")

// Find locates the highest-precedence recipe file in dir.
func Find(dir string) (string, error) {
	for _, name := range recognizedNames {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "checking %s", candidate)
		}
	}
	return "", errors.Wrapf(ErrNoRecipe, "in %s", dir)
}

// Load reads and parses the recipe file at path, dispatching to the JSON or
// SDL dialect by extension.
func Load(path string) (*Recipe, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading recipe %s", path)
	}

	switch filepath.Ext(path) {
	case ".sdl":
		return ParseSDL(b)
	default:
		return ParseJSON(b)
	}
}

// LoadDir finds and loads the recipe file in dir.
func LoadDir(dir string) (*Recipe, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}
