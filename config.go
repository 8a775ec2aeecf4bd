package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hesusruiz/vcutils/yaml"
	"github.com/hesusruiz/wikirite/wikitext"
	"github.com/urfave/cli/v2"
)

// Config holds the settings of a run. They come from the YAML config file and
// are overridden by the command line flags.
type Config struct {
	NoEdit        bool
	CodeStyle     string
	MaxDepth      int
	MaxExpansions int

	// LinkBase is prepended to the target of internal links
	LinkBase string

	TemplateDir string
	TemplateDB  string
	Inline      map[string]string

	Params map[string]string
}

func defaultConfig() *Config {
	return &Config{
		CodeStyle:     wikitext.DefaultCodeStyle,
		MaxDepth:      wikitext.DefaultMaxDepth,
		MaxExpansions: wikitext.DefaultMaxExpansions,
		Inline:        map[string]string{},
		Params:        map[string]string{},
	}
}

// defaultConfigFile is looked up next to the input when no config file is given.
const defaultConfigFile = "wikirite.yaml"

// configName returns the config file to read: the one given, or the default one
// next to the input if it exists.
func configName(given, inputFileName string) string {
	if given != "" {
		return given
	}
	name := filepath.Join(filepath.Dir(inputFileName), defaultConfigFile)
	if _, err := os.Stat(name); err != nil {
		return ""
	}
	return name
}

// loadConfig reads the config file. An empty name returns the defaults.
//
//	render:
//	  noedit: true
//	  codeStyle: github
//	  maxDepth: 40
//	  maxExpansions: 10000
//	links:
//	  base: /wiki/
//	templates:
//	  dir: templates
//	  db: templates.db
//	  inline:
//	    "!": "|"
//	params:
//	  SITENAME: My wiki
func loadConfig(fileName string) (*Config, error) {
	cfg := defaultConfig()
	if fileName == "" {
		return cfg, nil
	}

	y, err := yaml.ParseYamlFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", fileName, err)
	}

	cfg.NoEdit = y.Bool("render.noedit")
	cfg.CodeStyle = y.String("render.codeStyle", cfg.CodeStyle)
	cfg.MaxDepth = y.Int("render.maxDepth", cfg.MaxDepth)
	cfg.MaxExpansions = y.Int("render.maxExpansions", cfg.MaxExpansions)
	cfg.LinkBase = y.String("links.base")
	cfg.TemplateDir = y.String("templates.dir")
	cfg.TemplateDB = y.String("templates.db")
	cfg.Inline = stringMap(y.Map("templates.inline"))
	cfg.Params = stringMap(y.Map("params"))

	return cfg, nil
}

// stringMap converts the scalar values of a YAML mapping to strings.
func stringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// applyFlags overrides the config with the flags set in the command line.
func (cfg *Config) applyFlags(c *cli.Context) error {
	if c.IsSet("noedit") {
		cfg.NoEdit = c.Bool("noedit")
	}
	if c.IsSet("style") {
		cfg.CodeStyle = c.String("style")
	}
	if c.IsSet("base") {
		cfg.LinkBase = c.String("base")
	}
	if c.IsSet("templates") {
		cfg.TemplateDir = c.String("templates")
	}
	if c.IsSet("db") {
		cfg.TemplateDB = c.String("db")
	}
	for _, kv := range c.StringSlice("param") {
		if err := cfg.setParam(kv); err != nil {
			return err
		}
	}
	return nil
}

// setParam sets a document parameter from a "NAME=value" string.
func (cfg *Config) setParam(kv string) error {
	name, value, found := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return fmt.Errorf("invalid parameter %q, expected NAME=value", kv)
	}
	cfg.Params[name] = value
	return nil
}

// resolveURL maps an internal link target to a URL under LinkBase, with
// spaces written as underscores.
func (cfg *Config) resolveURL(target string) string {
	target = strings.ReplaceAll(strings.TrimSpace(target), " ", "_")
	if cfg.LinkBase == "" {
		return target
	}
	return strings.TrimSuffix(cfg.LinkBase, "/") + "/" + target
}
