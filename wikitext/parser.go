// Package wikitext renders wiki markup into sanitized HTML.
//
// Rendering happens in two stages. A template preprocessor expands template
// calls, parameter references and parser functions, and then a block and inline
// renderer turns the expanded text into HTML, which is finally sanitized.
// Rendering never fails: malformed markup degrades to text, and problems found
// along the way are reported as SyntaxErrors.
package wikitext

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	DefaultMaxDepth      = 40
	DefaultMaxExpansions = 10000
	DefaultCodeStyle     = "github"
)

// TemplateFunc returns the body of the named template, and whether it exists.
type TemplateFunc func(name string) (string, bool)

// URLFunc maps the target of an internal link to a URL.
type URLFunc func(target string) string

// ExternalLinkFunc renders an external link. text is an HTML fragment.
type ExternalLinkFunc func(url, text string) string

// SyntaxError is a problem found while rendering. It is informational: the
// offending markup is still rendered in a degraded form.
type SyntaxError struct {
	Filename string
	Line     int
	Column   int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Msg)
}

// LinkKind classifies a collected link.
type LinkKind int

const (
	InternalLink LinkKind = iota
	ExternalLink
	ImageLink
)

func (k LinkKind) String() string {
	switch k {
	case InternalLink:
		return "internal"
	case ExternalLink:
		return "external"
	case ImageLink:
		return "image"
	}
	return fmt.Sprintf("LinkKind(%d)", int(k))
}

// Link is a link found in the document.
type Link struct {
	Kind   LinkKind
	Target string
	Href   string
	Text   string
}

// Heading is a section heading of the document.
type Heading struct {
	Level  int
	Text   string
	ID     string
	Number string
}

// Reference is one use of a footnote marker. Uses of a named reference share
// the Number.
type Reference struct {
	Number int
	Name   string
	Text   string
	HTML   string
}

// RenderOptions control a single render.
type RenderOptions struct {
	// NoEdit suppresses the section edit links of headings.
	NoEdit bool
}

// Result is the output of a render.
type Result struct {
	HTML          string
	InternalLinks []Link
	ExternalLinks []Link
	References    []Reference
	Categories    []string
	Headings      []Heading
	SyntaxErrors  []*SyntaxError
}

// Parser renders one document. Render may be called concurrently.
type Parser struct {
	data     string
	fileName string
	params   map[string]string

	lookupTemplate TemplateFunc
	resolveURL     URLFunc
	externalLink   ExternalLinkFunc

	log           *zap.SugaredLogger
	policy        *bluemonday.Policy
	maxDepth      int
	maxExpansions int
	codeStyle     string

	diagrams *diagramCache

	mu   sync.Mutex
	last *Result
}

// Option configures a Parser.
type Option func(*Parser)

// WithParams sets the document parameters, like PAGENAME. They are visible as
// {{{name}}} at the top level and as {{name}} anywhere.
func WithParams(params map[string]string) Option {
	return func(p *Parser) {
		p.params = maps.Clone(params)
	}
}

func WithTemplates(f TemplateFunc) Option {
	return func(p *Parser) {
		if f != nil {
			p.lookupTemplate = f
		}
	}
}

func WithURLResolver(f URLFunc) Option {
	return func(p *Parser) {
		if f != nil {
			p.resolveURL = f
		}
	}
}

func WithExternalLinks(f ExternalLinkFunc) Option {
	return func(p *Parser) {
		if f != nil {
			p.externalLink = f
		}
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithPolicy replaces the sanitizer policy. The policy must not be modified afterwards.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(p *Parser) {
		if policy != nil {
			p.policy = policy
		}
	}
}

func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

func WithMaxExpansions(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxExpansions = n
		}
	}
}

// WithCodeStyle selects the chroma style used for source blocks.
func WithCodeStyle(style string) Option {
	return func(p *Parser) {
		if style != "" {
			p.codeStyle = style
		}
	}
}

// WithFileName sets the name reported in the SyntaxErrors of the document.
func WithFileName(name string) Option {
	return func(p *Parser) {
		if name != "" {
			p.fileName = name
		}
	}
}

// NewParser returns a Parser for the wiki markup in data.
func NewParser(data string, opts ...Option) *Parser {
	p := &Parser{
		data:          data,
		fileName:      "document",
		params:        map[string]string{},
		log:           zap.NewNop().Sugar(),
		maxDepth:      DefaultMaxDepth,
		maxExpansions: DefaultMaxExpansions,
		codeStyle:     DefaultCodeStyle,
		diagrams:      newDiagramCache(),
	}
	p.lookupTemplate = func(string) (string, bool) { return "", false }
	p.resolveURL = func(target string) string { return target }
	p.externalLink = defaultExternalLink

	for _, opt := range opts {
		opt(p)
	}
	if p.policy == nil {
		p.policy = NewPolicy()
	}
	return p
}

func defaultExternalLink(url, text string) string {
	return `<a href="` + escapeHTML(url) + `" class="external">` + text + `</a>`
}

// Render renders the document. It never fails; see Result.SyntaxErrors for
// the problems found.
func (p *Parser) Render(opts RenderOptions) (res *Result) {
	st := newRenderState(p, opts)

	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("render failed", "file", p.fileName, "panic", r)
			st.syntaxError(p.fileName, "", 0, fmt.Sprintf("render failed: %v", r))
			res = st.result("<pre>" + escapeLiteral(p.data) + "</pre>")
		}
	}()

	return st.result(st.render())
}

// ToHTML renders the document and keeps the result for the accessor methods.
func (p *Parser) ToHTML(opts RenderOptions) string {
	res := p.Render(opts)
	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
	return res.HTML
}

func (p *Parser) lastResult() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return &Result{}
	}
	return p.last
}

// InternalLinks returns the internal links of the last ToHTML call, in document order.
func (p *Parser) InternalLinks() []Link {
	return slices.Clone(p.lastResult().InternalLinks)
}

func (p *Parser) ExternalLinks() []Link {
	return slices.Clone(p.lastResult().ExternalLinks)
}

func (p *Parser) References() []Reference {
	return slices.Clone(p.lastResult().References)
}

func (p *Parser) Categories() []string {
	return slices.Clone(p.lastResult().Categories)
}

func (p *Parser) Headings() []Heading {
	return slices.Clone(p.lastResult().Headings)
}

func (p *Parser) SyntaxErrors() []*SyntaxError {
	return slices.Clone(p.lastResult().SyntaxErrors)
}

// renderState is the mutable state of a single render.
type renderState struct {
	p    *Parser
	opts RenderOptions

	callStack  []string
	expansions int
	templates  map[string]*parsedTemplate

	spans []*ProtectedSpan

	internalLinks []Link
	externalLinks []Link
	references    []Reference
	notes         []*note
	namedNotes    map[string]*note
	categories    []string

	headings []Heading
	outline  []outlineLevel
	anchors  map[string]int
	switches map[string]bool
	tocSpan  string

	syntaxErrors []*SyntaxError
}

func newRenderState(p *Parser, opts RenderOptions) *renderState {
	return &renderState{
		p:          p,
		opts:       opts,
		templates:  map[string]*parsedTemplate{},
		namedNotes: map[string]*note{},
		anchors:    map[string]int{},
		switches:   map[string]bool{},
	}
}

// syntaxError records a diagnostic located at offset of text.
func (st *renderState) syntaxError(file, text string, offset int, msg string) {
	line, column := 0, 0
	if text != "" {
		line, column = lineColumn(text, offset)
	}
	st.p.log.Debugw("syntax error", "file", file, "line", line, "msg", msg)
	st.syntaxErrors = append(st.syntaxErrors, &SyntaxError{Filename: file, Line: line, Column: column, Msg: msg})
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// render runs the whole pipeline over the document.
func (st *renderState) render() string {
	text := normalizeNewlines(st.p.data)
	text = st.extract(text, st.p.fileName)
	text = applyInclusionMode(text, directView)
	text = st.expandText(text, st.topFrame())
	text = stripSentinels(text)
	text = st.consumeSwitches(text)
	text = st.extractReferences(text)

	out := st.renderBlocks(text)
	out = st.resolveSpans(out, false)
	out = st.p.policy.Sanitize(out)
	out = st.resolveSpans(out, true)
	return out
}

func (st *renderState) result(html string) *Result {
	return &Result{
		HTML:          html,
		InternalLinks: st.internalLinks,
		ExternalLinks: st.externalLinks,
		References:    st.references,
		Categories:    st.categories,
		Headings:      st.headings,
		SyntaxErrors:  st.syntaxErrors,
	}
}
