package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/hesusruiz/wikirite/store"
	"github.com/hesusruiz/wikirite/wikitext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, wikitext.DefaultCodeStyle, cfg.CodeStyle)
	assert.Equal(t, wikitext.DefaultMaxDepth, cfg.MaxDepth)
	assert.False(t, cfg.NoEdit)
	assert.Empty(t, cfg.Params)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikirite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
render:
  noedit: true
  codeStyle: monokai
  maxDepth: 12
links:
  base: /wiki/
templates:
  dir: tpl
  inline:
    greeting: hello
params:
  SITENAME: My wiki
  YEAR: 2024
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.NoEdit)
	assert.Equal(t, "monokai", cfg.CodeStyle)
	assert.Equal(t, 12, cfg.MaxDepth)
	assert.Equal(t, wikitext.DefaultMaxExpansions, cfg.MaxExpansions)
	assert.Equal(t, "/wiki/", cfg.LinkBase)
	assert.Equal(t, "tpl", cfg.TemplateDir)
	assert.Equal(t, map[string]string{"greeting": "hello"}, cfg.Inline)
	assert.Equal(t, map[string]string{"SITENAME": "My wiki", "YEAR": "2024"}, cfg.Params)
}

func TestConfigName(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "index.wiki")

	assert.Equal(t, "given.yaml", configName("given.yaml", input))
	assert.Equal(t, "", configName("", input))

	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultConfigFile), []byte("params: {}\n"), 0o644))
	assert.Equal(t, filepath.Join(dir, defaultConfigFile), configName("", input))
}

func TestSetParam(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.setParam("PAGENAME=Main Page"))
	require.NoError(t, cfg.setParam("EMPTY="))
	assert.Equal(t, map[string]string{"PAGENAME": "Main Page", "EMPTY": ""}, cfg.Params)

	assert.Error(t, cfg.setParam("novalue"))
	assert.Error(t, cfg.setParam("=x"))
}

func TestResolveURL(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, "Main_Page", cfg.resolveURL("Main Page"))

	cfg.LinkBase = "/wiki/"
	assert.Equal(t, "/wiki/Main_Page", cfg.resolveURL(" Main Page "))
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "docs/page.html", outputName("docs/page.wiki"))
	assert.Equal(t, "README.html", outputName("README"))
	assert.Equal(t, "page", pageName("docs/page.wiki"))
}

func TestRenderTo(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Home.wiki")
	require.NoError(t, os.WriteFile(input, []byte("'''{{{PAGENAME}}}''' {{greeting}} {{fromdir}} [[Other page]]"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "fromdir"+store.Extension), []byte("from dir"), 0o644))

	cfg := defaultConfig()
	cfg.Inline["greeting"] = "hello"
	cfg.LinkBase = "/wiki"

	templates, closeTemplates, err := templateStore(cfg, input, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer closeTemplates()

	r := &renderer{cfg: cfg, templates: templates, log: zap.NewNop().Sugar()}
	output := filepath.Join(dir, "out.html")

	require.NoError(t, r.renderTo(input, output, true))
	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, r.renderTo(input, output, false))
	html, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "\n<p><b>Home</b> hello from dir <a href=\"/wiki/Other_page\" title=\"Other page\">Other page</a></p>", string(html))
}

func TestRelevantEvents(t *testing.T) {
	dir := t.TempDir()
	input, err := filepath.Abs(filepath.Join(dir, "index.wiki"))
	require.NoError(t, err)
	tpl := filepath.Join(dir, "templates")

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "input written", event: fsnotify.Event{Name: input, Op: fsnotify.Write}, want: true},
		{name: "template created", event: fsnotify.Event{Name: filepath.Join(tpl, "a.wiki"), Op: fsnotify.Create}, want: true},
		{name: "other file", event: fsnotify.Event{Name: filepath.Join(dir, "other.wiki"), Op: fsnotify.Write}},
		{name: "chmod only", event: fsnotify.Event{Name: input, Op: fsnotify.Chmod}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event, input, []string{tpl}))
		})
	}
}
