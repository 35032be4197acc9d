// Package selections implements the persisted pin file (spec glossary:
// Selections) mapping each transitively depended-upon package name to a
// concrete version, path, or repository pin.
package selections

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/anvil-build/anvil/internal/pathutil"
	"github.com/pkg/errors"
)

// FileName is the recognized selections filename (spec §6).
const FileName = "dub.selections.json"

// CurrentFileVersion is the only file-version this implementation applies;
// any other value is loaded (for forward-compat diagnostics) but ignored
// (spec §4.5).
const CurrentFileVersion = 1

// Pin is one selection target: a concrete version, or a path override, or a
// repository-pinned revision.
type Pin struct {
	Version    string
	Path       string
	Repository string
}

// ErrNotSelected is returned by Get for a name with no recorded pin.
var ErrNotSelected = errors.New("package is not selected")

// Selections is a loaded (or newly created) selections document plus the
// path it would be saved to and a dirty flag tracking unsaved mutations.
type Selections struct {
	path        string
	fileVersion int
	inheritable bool
	versions    map[string]Pin
	dirty       bool

	// Save emits keys in sorted order (via Names), so the output does not
	// depend on mutation history.
}

// New creates an empty, project-rooted (non-inheritable) Selections that
// will be saved to filepath.Join(projectRoot, FileName).
func New(projectRoot string) *Selections {
	return &Selections{
		path:        filepath.Join(projectRoot, FileName),
		fileVersion: CurrentFileVersion,
		versions:    map[string]Pin{},
	}
}

type wireDoc struct {
	FileVersion int                        `json:"fileVersion"`
	Inheritable bool                       `json:"inheritable"`
	Versions    map[string]json.RawValue   `json:"versions"`
}

// Load walks upward from projectRoot looking for a selections file. A file
// found directly in projectRoot is always used; one found in an ancestor is
// used only if its own `inheritable` flag is true (spec §4.5). If no
// applicable file is found, Load returns a fresh Selections rooted at
// projectRoot.
func Load(projectRoot string, warn func(format string, args ...interface{})) (*Selections, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, errors.Wrap(err, "resolving project root")
	}

	dir := abs
	first := true
	for {
		candidate := filepath.Join(dir, FileName)
		if ok, _ := pathutil.IsRegular(candidate); ok {
			doc, err := loadWireDoc(candidate)
			if err != nil {
				return nil, err
			}
			if !first && !doc.Inheritable {
				break // found in an ancestor, but it's not inheritable: discard
			}
			s, ignored := fromWireDoc(abs, candidate, doc)
			if ignored && warn != nil {
				warn("ignoring %s: unsupported fileVersion %d", candidate, doc.FileVersion)
			}
			return s, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
		first = false
	}

	return New(abs), nil
}

func loadWireDoc(path string) (wireDoc, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return wireDoc{}, errors.Wrapf(err, "reading %s", path)
	}
	var doc wireDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return wireDoc{}, errors.Wrapf(err, "parsing %s", path)
	}
	return doc, nil
}

func fromWireDoc(projectRoot, path string, doc wireDoc) (*Selections, bool) {
	s := &Selections{
		path:        filepath.Join(projectRoot, FileName),
		fileVersion: doc.FileVersion,
		inheritable: doc.Inheritable,
		versions:    map[string]Pin{},
	}

	if doc.FileVersion != CurrentFileVersion {
		// File-version 0 or unknown: loaded but ignored (spec §4.5).
		s.versions = map[string]Pin{}
		return s, true
	}

	for name, raw := range doc.Versions {
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			s.versions[name] = Pin{Version: asString}
			continue
		}
		var obj struct {
			Path       string `json:"path"`
			Repository string `json:"repository"`
			Version    string `json:"version"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			s.versions[name] = Pin{Path: obj.Path, Repository: obj.Repository, Version: obj.Version}
		}
	}
	_ = path
	return s, false
}

// Select pins name to p, dirtying the document unless p equals the existing
// pin for name (spec §4.5).
func (s *Selections) Select(name string, p Pin) {
	if existing, ok := s.versions[name]; ok && existing == p {
		return
	}
	s.versions[name] = p
	s.dirty = true
}

// Deselect removes name's pin, dirtying the document.
func (s *Selections) Deselect(name string) {
	if _, ok := s.versions[name]; !ok {
		return
	}
	delete(s.versions, name)
	s.dirty = true
}

// Get returns name's pin, or ErrNotSelected if absent.
func (s *Selections) Get(name string) (Pin, error) {
	p, ok := s.versions[name]
	if !ok {
		return Pin{}, errors.Wrapf(ErrNotSelected, "%q", name)
	}
	return p, nil
}

// Dirty reports whether Select/Deselect have made unsaved changes.
func (s *Selections) Dirty() bool { return s.dirty }

// Names returns every currently-selected package name, sorted.
func (s *Selections) Names() []string {
	names := make([]string, 0, len(s.versions))
	for n := range s.versions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Save serializes the document in stable (sorted) key order and clears the
// dirty flag (spec §4.5).
func (s *Selections) Save() error {
	doc := struct {
		FileVersion int                    `json:"fileVersion"`
		Inheritable bool                   `json:"inheritable"`
		Versions    map[string]interface{} `json:"versions"`
	}{
		FileVersion: CurrentFileVersion,
		Inheritable: s.inheritable,
		Versions:    map[string]interface{}{},
	}

	for _, name := range s.Names() {
		p := s.versions[name]
		switch {
		case p.Path != "":
			doc.Versions[name] = map[string]string{"path": p.Path}
		case p.Repository != "":
			doc.Versions[name] = map[string]string{"repository": p.Repository, "version": p.Version}
		default:
			doc.Versions[name] = p.Version
		}
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := pathutil.WriteAtomic(s.path, b); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
