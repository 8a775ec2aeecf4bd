package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hesusruiz/wikirite/store"
	"github.com/hesusruiz/wikirite/wikitext"
	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const defaultInput = "index.wiki"

// newLogger returns a development logger in debug mode and a production one otherwise.
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var z *zap.Logger
	var err error
	if debug {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}

// outputName derives the name of the HTML file from the input file name.
func outputName(inputFileName string) string {
	ext := filepath.Ext(inputFileName)
	if len(ext) == 0 {
		return inputFileName + ".html"
	}
	return strings.TrimSuffix(inputFileName, ext) + ".html"
}

// pageName is the default PAGENAME of a document: its file name without extension.
func pageName(inputFileName string) string {
	base := filepath.Base(inputFileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// templateStore builds the chain of template backends: inline templates from the
// config, then the template directory, then the database.
func templateStore(cfg *Config, inputFileName string, log *zap.SugaredLogger) (store.Chain, func(), error) {
	chain := store.Chain{store.MapStore(cfg.Inline)}

	dir := cfg.TemplateDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(inputFileName), "templates")
	}
	chain = append(chain, store.NewFileStore(dir, log))

	closer := func() {}
	if cfg.TemplateDB != "" {
		db, err := store.OpenSQLStore(cfg.TemplateDB, log)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, db)
		closer = func() {
			if err := db.Close(); err != nil {
				log.Warnw("closing template database", "error", err)
			}
		}
	}
	return chain, closer, nil
}

// renderer renders one input file with a fixed configuration.
type renderer struct {
	cfg       *Config
	templates store.Lookuper
	log       *zap.SugaredLogger
	links     bool
}

// renderFile renders inputFileName and returns the HTML.
func (r *renderer) renderFile(inputFileName string) (string, error) {
	data, err := os.ReadFile(inputFileName)
	if err != nil {
		return "", err
	}

	params := map[string]string{"PAGENAME": pageName(inputFileName)}
	for k, v := range r.cfg.Params {
		params[k] = v
	}

	p := wikitext.NewParser(string(data),
		wikitext.WithFileName(inputFileName),
		wikitext.WithParams(params),
		wikitext.WithTemplates(r.templates.Lookup),
		wikitext.WithURLResolver(r.cfg.resolveURL),
		wikitext.WithLogger(r.log),
		wikitext.WithCodeStyle(r.cfg.CodeStyle),
		wikitext.WithMaxDepth(r.cfg.MaxDepth),
		wikitext.WithMaxExpansions(r.cfg.MaxExpansions),
	)

	start := time.Now()
	html := p.ToHTML(wikitext.RenderOptions{NoEdit: r.cfg.NoEdit})
	r.log.Debugw("rendered", "file", inputFileName, "bytes", len(html), "elapsed", time.Since(start))

	for _, e := range p.SyntaxErrors() {
		r.log.Warnw("syntax error", "error", e.Error())
	}

	if r.links {
		for _, l := range p.InternalLinks() {
			fmt.Printf("%s\t%s\t%s\n", l.Kind, l.Target, l.Href)
		}
		for _, l := range p.ExternalLinks() {
			fmt.Printf("%s\t%s\t%s\n", l.Kind, l.Target, l.Href)
		}
		for _, c := range p.Categories() {
			fmt.Printf("category\t%s\n", c)
		}
		for _, ref := range p.References() {
			fmt.Printf("reference\t%d\t%s\n", ref.Number, ref.Text)
		}
	}

	return html, nil
}

// renderTo renders the input and writes the HTML atomically, unless dryrun is set.
func (r *renderer) renderTo(inputFileName, outputFileName string, dryrun bool) error {
	html, err := r.renderFile(inputFileName)
	if err != nil {
		return err
	}
	if dryrun {
		return nil
	}
	if err := atomic.WriteFile(outputFileName, bytes.NewReader([]byte(html))); err != nil {
		return fmt.Errorf("writing %s: %w", outputFileName, err)
	}
	return nil
}

// process is the main entry point of the program
func process(c *cli.Context) error {

	// Dry run
	dryrun := c.Bool("dryrun")

	sugar, err := newLogger(c.Bool("debug"))
	if err != nil {
		return err
	}
	defer sugar.Sync()

	// Get the input file name
	inputFileName := defaultInput
	if c.Args().Present() {
		inputFileName = c.Args().First()
	} else {
		fmt.Printf("no input file provided, using \"%v\"\n", inputFileName)
	}

	cfg, err := loadConfig(configName(c.String("config"), inputFileName))
	if err != nil {
		return err
	}
	if err := cfg.applyFlags(c); err != nil {
		return err
	}

	// Generate the output file name
	outputFileName := c.String("output")
	if len(outputFileName) == 0 {
		outputFileName = outputName(inputFileName)
	}

	templates, closeTemplates, err := templateStore(cfg, inputFileName, sugar)
	if err != nil {
		return err
	}
	defer closeTemplates()

	r := &renderer{cfg: cfg, templates: templates, log: sugar, links: c.Bool("links")}

	if !dryrun {
		fmt.Printf("processing %v and generating %v\n", inputFileName, outputFileName)
	} else {
		fmt.Printf("dry run: processing %v without writing output\n", inputFileName)
	}

	// If the user specified to watch, render again whenever the input or a template changes
	if c.Bool("watch") {
		dirs := []string{}
		for _, l := range templates {
			if fs, ok := l.(*store.FileStore); ok {
				dirs = append(dirs, fs.Dir())
			}
		}
		return watch(c.Context, inputFileName, dirs, sugar, func() error {
			return r.renderTo(inputFileName, outputFileName, dryrun)
		})
	}

	return r.renderTo(inputFileName, outputFileName, dryrun)
}

// importTemplates loads a directory of templates into the database.
func importTemplates(c *cli.Context) error {
	sugar, err := newLogger(c.Bool("debug"))
	if err != nil {
		return err
	}
	defer sugar.Sync()

	if !c.Args().Present() {
		return fmt.Errorf("missing templates directory")
	}
	dir := c.Args().First()

	db, err := store.OpenSQLStore(c.String("db"), sugar)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := db.Import(ctx, store.NewFileStore(dir, sugar))
	if err != nil {
		return err
	}
	fmt.Printf("imported %d templates from %s into %s\n", n, dir, c.String("db"))
	return nil
}

func main() {

	app := &cli.App{
		Name:     "wikirite",
		Version:  "v0.1.0",
		Compiled: time.Now(),
		Authors: []*cli.Author{
			{
				Name:  "Jesus Ruiz",
				Email: "hesus.ruiz@gmail.com",
			},
		},
		Usage:     "render a wiki markup document to sanitized HTML",
		UsageText: "wikirite [options] [INPUT_FILE] (default input file is " + defaultInput + ")",
		Action:    process,
		ArgsUsage: "INPUT_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write html to `FILE` (default is input file name with extension .html)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings from the YAML `FILE`",
			},
			&cli.StringFlag{
				Name:    "templates",
				Aliases: []string{"t"},
				Usage:   "read templates from `DIR` (default is the templates directory next to the input file)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "read templates from the SQLite database `FILE`",
			},
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "set a document parameter as `NAME=value`",
			},
			&cli.StringFlag{
				Name:  "base",
				Usage: "prefix internal links with `URL`",
			},
			&cli.StringFlag{
				Name:  "style",
				Usage: "highlight source blocks with the chroma `STYLE`",
			},
			&cli.BoolFlag{
				Name:  "noedit",
				Usage: "do not generate section edit links",
			},
			&cli.BoolFlag{
				Name:  "links",
				Usage: "print the links and categories found in the document",
			},
			&cli.BoolFlag{
				Name:    "dryrun",
				Aliases: []string{"n"},
				Usage:   "do not generate output file, just process input file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "run in debug mode",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "watch the input file and the templates for changes",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "copy a directory of templates into a SQLite database",
				ArgsUsage: "DIR",
				Action:    importTemplates,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Usage:    "the SQLite database `FILE`",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "debug",
						Aliases: []string{"d"},
						Usage:   "run in debug mode",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

}
