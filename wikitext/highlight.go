package wikitext

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	hlhtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlight renders a <source> or <syntaxhighlight> span with chroma. The
// language comes from the lang attribute, or is guessed from the content.
func (p *Parser) highlight(sp *ProtectedSpan) (out string) {
	code := strings.Trim(sp.Raw, "\n")
	if strings.TrimSpace(code) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Warnw("highlighter failed", "panic", r)
			out = "<pre>" + escapeLiteral(code) + "</pre>"
		}
	}()

	// Determine lexer.
	l := lexers.Get(strings.TrimSpace(attrValue(sp.Attrs, "lang")))
	if l == nil {
		l = lexers.Analyse(code)
	}
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)

	s := styles.Get(p.codeStyle)
	f := hlhtml.New(hlhtml.Standalone(false), hlhtml.PreventSurroundingPre(true))

	it, err := l.Tokenise(nil, code)
	if err != nil {
		p.log.Warnw("tokenising source block", "lang", attrValue(sp.Attrs, "lang"), "error", err)
		return "<pre>" + escapeLiteral(code) + "</pre>"
	}

	rb := &bytes.Buffer{}
	if err := f.Format(rb, s, it); err != nil {
		p.log.Warnw("formatting source block", "error", err)
		return "<pre>" + escapeLiteral(code) + "</pre>"
	}

	var br ByteRenderer
	br.Render(`<div class="mw-highlight">`, `<pre class="nohighlight precolor">`,
		rb.Bytes(), "</pre>", "</div>")
	return br.String()
}
