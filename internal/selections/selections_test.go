package selections

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIsEmptyAndClean(t *testing.T) {
	s := New(t.TempDir())
	require.False(t, s.Dirty())
	_, err := s.Get("widget")
	require.ErrorIs(t, err, ErrNotSelected)
}

func TestSelectDeselectDirtyTracking(t *testing.T) {
	s := New(t.TempDir())
	s.Select("widget", Pin{Version: "1.0.0"})
	require.True(t, s.Dirty())

	s.dirty = false
	s.Select("widget", Pin{Version: "1.0.0"})
	require.False(t, s.Dirty(), "re-selecting the identical pin must not dirty")

	s.Deselect("widget")
	require.True(t, s.Dirty())
	_, err := s.Get("widget")
	require.ErrorIs(t, err, ErrNotSelected)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	s.Select("widget", Pin{Version: "1.2.3"})
	s.Select("gadget", Pin{Path: "../gadget"})
	s.Select("gizmo", Pin{Repository: "git+https://example.com/gizmo.git", Version: "abc123"})
	require.NoError(t, s.Save())
	require.False(t, s.Dirty())

	loaded, err := Load(dir, nil)
	require.NoError(t, err)

	p, err := loaded.Get("widget")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", p.Version)

	p, err = loaded.Get("gadget")
	require.NoError(t, err)
	require.Equal(t, "../gadget", p.Path)

	p, err = loaded.Get("gizmo")
	require.NoError(t, err)
	require.Equal(t, "abc123", p.Version)
	require.Equal(t, "git+https://example.com/gizmo.git", p.Repository)
}

func TestLoadIgnoresNonInheritableAncestorFile(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "sub")
	require.NoError(t, os.MkdirAll(child, 0o755))

	parentDoc := `{"fileVersion":1,"inheritable":false,"versions":{"widget":"1.0.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(parent, FileName), []byte(parentDoc), 0o644))

	s, err := Load(child, nil)
	require.NoError(t, err)
	_, err = s.Get("widget")
	require.ErrorIs(t, err, ErrNotSelected)
}

func TestLoadUsesInheritableAncestorFile(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "sub")
	require.NoError(t, os.MkdirAll(child, 0o755))

	parentDoc := `{"fileVersion":1,"inheritable":true,"versions":{"widget":"1.0.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(parent, FileName), []byte(parentDoc), 0o644))

	s, err := Load(child, nil)
	require.NoError(t, err)
	p, err := s.Get("widget")
	require.NoError(t, err)
	require.Equal(t, "1.0.0", p.Version)
}

func TestLoadIgnoresUnsupportedFileVersion(t *testing.T) {
	dir := t.TempDir()
	doc := `{"fileVersion":0,"inheritable":false,"versions":{"widget":"1.0.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0o644))

	var warned bool
	s, err := Load(dir, func(format string, args ...interface{}) { warned = true })
	require.NoError(t, err)
	require.True(t, warned)
	_, err = s.Get("widget")
	require.ErrorIs(t, err, ErrNotSelected)
}
