package wikitext

import (
	"bufio"
	"net/url"
	"regexp"
	"strings"
)

// Text is a line of the expanded document.
type Text struct {
	LineNumber int
	Content    string
}

// blockParser splits the expanded text in blocks, reading lines with one level
// of backtracking.
type blockParser struct {
	st *renderState
	s  *bufio.Scanner
	br *ByteRenderer

	// bufferedLine is the line returned by the next ReadLine, if not nil
	bufferedLine *Text

	currentLineCounter int

	// para accumulates the lines of the current paragraph
	para []string

	tocPlaced bool
}

func newBlockParser(st *renderState, text string) *blockParser {
	s := bufio.NewScanner(strings.NewReader(text))
	s.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	return &blockParser{st: st, s: s, br: &ByteRenderer{}, tocPlaced: st.tocSpan != ""}
}

// ReadLine returns the next line, or nil at the end of the text.
func (bp *blockParser) ReadLine() *Text {
	// If there is a line already buffered, return it
	if bp.bufferedLine != nil {
		line := bp.bufferedLine
		bp.bufferedLine = nil
		return line
	}
	if !bp.s.Scan() {
		return nil
	}
	bp.currentLineCounter++
	return &Text{LineNumber: bp.currentLineCounter, Content: strings.TrimRight(bp.s.Text(), " \t")}
}

// UnreadLine pushes back a line so the next ReadLine returns it.
func (bp *blockParser) UnreadLine(line *Text) {
	if bp.bufferedLine != nil {
		panic("UnreadLine: too many calls")
	}
	bp.bufferedLine = line
}

// renderBlocks renders the expanded text into HTML with placeholders.
func (st *renderState) renderBlocks(text string) string {
	bp := newBlockParser(st, text)

	for {
		line := bp.ReadLine()
		if line == nil {
			break
		}
		c := line.Content

		switch {
		case strings.TrimSpace(c) == "":
			bp.flushParagraph()

		case c[0] == '=':
			level, heading, ok := parseHeading(c)
			if !ok {
				bp.para = append(bp.para, c)
				continue
			}
			bp.flushParagraph()
			bp.renderHeading(level, heading)

		case strings.HasPrefix(c, "----"):
			bp.flushParagraph()
			bp.br.Render("\n<hr />")
			if rest := strings.TrimLeft(c, "-"); strings.TrimSpace(rest) != "" {
				bp.para = append(bp.para, strings.TrimSpace(rest))
			}

		case isListLine(c):
			bp.flushParagraph()
			bp.UnreadLine(line)
			bp.processList()

		case strings.HasPrefix(strings.TrimLeft(c, " \t"), "{|"):
			bp.flushParagraph()
			bp.UnreadLine(line)
			bp.processTable()

		case bp.isBlockLine(c):
			bp.flushParagraph()
			bp.br.Render("\n", st.renderInline(strings.TrimLeft(c, " \t")))

		case c[0] == ' ':
			bp.flushParagraph()
			bp.UnreadLine(line)
			bp.processPreformatted()

		default:
			bp.para = append(bp.para, c)
		}
	}
	bp.flushParagraph()

	return bp.br.String()
}

// flushParagraph emits the accumulated paragraph lines, if any.
func (bp *blockParser) flushParagraph() {
	if len(bp.para) == 0 {
		return
	}
	lines := make([]string, len(bp.para))
	for i, l := range bp.para {
		lines[i] = bp.st.renderInline(l)
	}
	bp.br.Render("\n<p>", strings.Join(lines, "\n"), "</p>")
	bp.para = bp.para[:0]
}

// parseHeading recognises "== text ==" lines. The level is the smaller of the
// leading and trailing runs of '=', at most 6.
func parseHeading(line string) (int, string, bool) {
	s := strings.TrimSpace(line)
	if len(s) < 3 || s[0] != '=' || s[len(s)-1] != '=' {
		return 0, "", false
	}
	lead := runLength(s, 0, '=')
	trail := len(s) - len(strings.TrimRight(s, "="))
	level := min(lead, trail, 6)
	if len(s) <= 2*level {
		level = (len(s) - 1) / 2
	}
	if level < 1 {
		return 0, "", false
	}
	text := strings.TrimSpace(s[level : len(s)-level])
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}

// renderHeading emits a heading, preceded by the table of contents when it is the
// first one and __TOC__ did not place it elsewhere.
func (bp *blockParser) renderHeading(level int, text string) {
	st := bp.st
	plain := st.plainText(text)
	id := st.anchorID(plain)
	number := st.outlineNumber(level)
	st.headings = append(st.headings, Heading{Level: level, Text: plain, ID: id, Number: number})

	if !bp.tocPlaced {
		bp.br.Render(st.tocPlaceholder())
		bp.tocPlaced = true
	}

	bp.br.Render("\n<h", level, ">")
	if !st.opts.NoEdit && !st.hasSwitch("NOEDITSECTION") {
		bp.br.Render(st.editLink(plain), " ")
	}
	content := st.renderInline(text)
	bp.br.Render(`<span class="mw-headline" id="`, escapeHTML(id), `"><a name="`, escapeHTML(id), `">`)
	if hasAnchor(content) {
		// Anchors do not nest
		bp.br.Render("</a>", content)
	} else {
		bp.br.Render(content, "</a>")
	}
	bp.br.Render("</span></h", level, ">")
}

// hasAnchor reports whether the rendered markup contains an <a> element.
func hasAnchor(html string) bool {
	return strings.Contains(html, "<a ") || strings.Contains(html, "<a>")
}

// editLink returns the placeholder of the section edit link of a heading.
func (st *renderState) editLink(section string) string {
	markup := `<span class="editsection">&#91;<a href="?section=` + escapeHTML(url.QueryEscape(section)) +
		`" title="Edit section: ` + escapeHTML(section) + `">edit</a>&#93;</span>`
	return st.addSpan(&ProtectedSpan{Kind: SpanEditLink, html: markup})
}

// blockTags are the HTML elements that make a line a block of its own.
var blockTags = map[string]bool{
	"address": true, "blockquote": true, "caption": true, "center": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figure": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "hr": true, "li": true, "ol": true,
	"p": true, "pre": true, "script": true, "section": true, "style": true,
	"table": true, "tbody": true, "td": true, "tfoot": true, "th": true, "thead": true,
	"tr": true, "ul": true,
}

// isBlockLine reports whether the line starts with a block level element or with
// the placeholder of a block span.
func (bp *blockParser) isBlockLine(line string) bool {
	s := strings.TrimLeft(line, " \t")
	if sp, ok := bp.st.spanAt(s); ok {
		return sp.block
	}
	if len(s) < 2 || s[0] != '<' {
		return false
	}
	tag, ok := scanTag(s, 0)
	return ok && blockTags[tag.Name]
}

// processPreformatted renders consecutive lines starting with a space as a pre block.
func (bp *blockParser) processPreformatted() {
	var lines []string
	for {
		line := bp.ReadLine()
		if line == nil {
			break
		}
		c := line.Content
		if len(c) == 0 || c[0] != ' ' || strings.TrimSpace(c) == "" || bp.isBlockLine(c) {
			bp.UnreadLine(line)
			break
		}
		lines = append(lines, bp.st.renderInline(c[1:]))
	}
	if len(lines) > 0 {
		bp.br.Render("\n<pre>", strings.Join(lines, "\n"), "</pre>")
	}
}

var (
	plainTagRe   = regexp.MustCompile(`<[^>]*>`)
	plainQuoteRe = regexp.MustCompile(`'{2,}`)
	plainLinkRe  = regexp.MustCompile(`\[\[(?:[^\[\]|]*\|)?([^\[\]|]*)\]\]`)
)

// plainText reduces inline markup to its text.
func (st *renderState) plainText(s string) string {
	s = plainLinkRe.ReplaceAllString(s, "$1")
	s = plainQuoteRe.ReplaceAllString(s, "")
	s = plainTagRe.ReplaceAllString(s, "")
	s = st.plainSpans(s)
	return strings.TrimSpace(s)
}
