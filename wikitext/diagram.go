package wikitext

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"sync"

	"oss.terrastruct.com/d2/d2graph"
	"oss.terrastruct.com/d2/d2layouts/d2dagrelayout"
	"oss.terrastruct.com/d2/d2lib"
	"oss.terrastruct.com/d2/d2renderers/d2svg"
	"oss.terrastruct.com/d2/d2themes/d2themescatalog"
	"oss.terrastruct.com/d2/lib/textmeasure"
)

// diagramCache keeps the SVG of the diagrams already compiled, keyed by the
// hash of their source.
type diagramCache struct {
	mu    sync.Mutex
	ruler *textmeasure.Ruler
	svgs  map[string][]byte
}

func newDiagramCache() *diagramCache {
	return &diagramCache{svgs: map[string][]byte{}}
}

// diagram renders a <d2> span as an inline SVG image. Compile errors are
// reported and the source is shown instead.
func (p *Parser) diagram(st *renderState, sp *ProtectedSpan) string {
	body, err := p.diagrams.render(sp.Raw)
	if err != nil {
		p.log.Warnw("d2 diagram failed", "error", err)
		st.syntaxError(p.fileName, "", 0, "d2 diagram: "+err.Error())
		return "<pre>" + escapeLiteral(sp.Raw) + "</pre>"
	}

	alt := attrValue(sp.Attrs, "alt")
	if alt == "" {
		alt = "diagram"
	}
	return `<figure class="diagram"><img src="data:image/svg+xml;base64,` +
		base64.StdEncoding.EncodeToString(body) + `" alt="` + escapeHTML(alt) + `"></figure>`
}

func (c *diagramCache) render(src string) (body []byte, err error) {
	hh := fmt.Sprintf("%x", md5.Sum([]byte(src)))

	c.mu.Lock()
	defer c.mu.Unlock()

	if svg, ok := c.svgs[hh]; ok {
		return svg, nil
	}

	defer func() {
		if r := recover(); r != nil {
			body, err = nil, fmt.Errorf("d2 panic: %v", r)
		}
	}()

	if c.ruler == nil {
		if c.ruler, err = textmeasure.NewRuler(); err != nil {
			return nil, fmt.Errorf("creating text ruler: %w", err)
		}
	}

	defaultLayout := func(ctx context.Context, g *d2graph.Graph) error {
		return d2dagrelayout.Layout(ctx, g, nil)
	}
	diagram, _, err := d2lib.Compile(context.Background(), src, &d2lib.CompileOptions{
		Layout: defaultLayout,
		Ruler:  c.ruler,
	})
	if err != nil {
		return nil, fmt.Errorf("compiling: %w", err)
	}
	body, err = d2svg.Render(diagram, &d2svg.RenderOpts{
		Pad:     d2svg.DEFAULT_PADDING,
		ThemeID: d2themescatalog.NeutralDefault.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering svg: %w", err)
	}

	c.svgs[hh] = body
	return body, nil
}
