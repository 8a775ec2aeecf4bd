package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+Extension)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "test", "busted")
	writeTemplate(t, dir, "Infobox/row", "<tr><td>{{{1}}}</td></tr>")

	fs := NewFileStore(dir, nil)

	tests := []struct {
		name  string
		tmpl  string
		want  string
		found bool
	}{
		{name: "existing", tmpl: "test", want: "busted", found: true},
		{name: "subpage", tmpl: "Infobox/row", want: "<tr><td>{{{1}}}</td></tr>", found: true},
		{name: "missing", tmpl: "nothere"},
		{name: "empty name", tmpl: "  "},
		{name: "parent traversal", tmpl: "../secret"},
		{name: "absolute path", tmpl: "/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := fs.Lookup(tt.tmpl)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}

	names, err := fs.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"Infobox/row", "test"}, names)

	_, err = fs.Get("nothere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapStoreAndChain(t *testing.T) {
	first := MapStore{"a": "from first"}
	second := MapStore{"a": "shadowed", "b": "from second"}
	chain := Chain{first, nil, second}

	got, ok := chain.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "from first", got)

	got, ok = chain.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, "from second", got)

	_, ok = chain.Lookup("c")
	assert.False(t, ok)
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLStore(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "test", "busted"))
	require.NoError(t, s.Put(ctx, "loop", "{{loop}}"))

	body, ok := s.Lookup("test")
	assert.True(t, ok)
	assert.Equal(t, "busted", body)

	// Put replaces
	require.NoError(t, s.Put(ctx, "test", "fixed"))
	body, err = s.Get(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "fixed", body)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loop", "test"}, names)

	require.NoError(t, s.Delete(ctx, "loop"))
	assert.ErrorIs(t, s.Delete(ctx, "loop"), ErrNotFound)
	_, err = s.Get(ctx, "loop")
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok = s.Lookup("loop")
	assert.False(t, ok)

	assert.Error(t, s.Put(ctx, " ", "x"))
}

func TestSQLStoreImport(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "tablebegin", "<table>")
	writeTemplate(t, dir, "tableend", "</table>")

	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "templates.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Import(context.Background(), NewFileStore(dir, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	body, ok := s.Lookup("tableend")
	assert.True(t, ok)
	assert.Equal(t, "</table>", body)
}
