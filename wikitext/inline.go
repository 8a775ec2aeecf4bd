package wikitext

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// inlineRenderer renders the inline markup of a single line.
type inlineRenderer struct {
	st *renderState
	br ByteRenderer

	// open is the stack of emphasis elements open, "b" or "i"
	open []string

	// noLinks disables link recognition, inside the display text of a link
	noLinks bool

	// closers maps each "[[" to its "]]"
	closers map[int]int

	// nextClose is the first ']' found by the last closingBracket call
	nextClose int
}

// renderInline renders one line of inline markup. Emphasis left open is closed
// at the end of the line.
func (st *renderState) renderInline(line string) string {
	ir := &inlineRenderer{st: st}
	ir.render(line)
	return ir.br.String()
}

// renderLinkText renders the display text of a link, where links are not recognised.
func (st *renderState) renderLinkText(text string) string {
	ir := &inlineRenderer{st: st, noLinks: true}
	ir.render(text)
	return ir.br.String()
}

func (ir *inlineRenderer) render(s string) {
	if !ir.noLinks && strings.Contains(s, "[[") {
		ir.closers = linkBrackets(s)
	}
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '\'':
			n := runLength(s, i, '\'')
			ir.apostrophes(n)
			i += n

		case '[':
			if !ir.noLinks {
				if next, ok := ir.link(s, i); ok {
					i = next
					continue
				}
			}
			ir.br.Render(c)
			i++

		case '<':
			if tag, ok := scanTag(s, i); ok && atom.Lookup([]byte(tag.Name)) != 0 {
				ir.br.Render(s[i:tag.End])
				i = tag.End
				continue
			}
			ir.br.Render("&lt;")
			i++

		case '>':
			ir.br.Render("&gt;")
			i++

		case '&':
			if n := entityLength(s[i:]); n > 0 {
				ir.br.Render(s[i : i+n])
				i += n
				continue
			}
			ir.br.Render("&amp;")
			i++

		default:
			if !ir.noLinks && (i == 0 || !isWordByte(s[i-1])) {
				if next, ok := ir.bareURL(s, i); ok {
					i = next
					continue
				}
			}
			ir.br.Render(c)
			i++
		}
	}
	ir.closeAll()
}

// link renders the internal or external link starting at s[i], which is '['.
func (ir *inlineRenderer) link(s string, i int) (int, bool) {
	if strings.HasPrefix(s[i:], "[[") {
		return ir.internalLink(s, i)
	}
	return ir.externalLink(s, i)
}

// apostrophes handles a run of n apostrophes: 2 toggles italics, 3 bold and 5 both.
// A run of 4 is an apostrophe and bold, and longer runs keep the extra ones as text.
func (ir *inlineRenderer) apostrophes(n int) {
	switch {
	case n == 1:
		ir.br.Render("'")
	case n == 2:
		ir.toggle("i")
	case n == 3:
		ir.toggle("b")
	case n == 4:
		ir.br.Render("'")
		ir.toggle("b")
	default:
		if n > 5 {
			ir.br.Render(strings.Repeat("'", n-5))
		}
		ir.toggleBoth()
	}
}

// toggle opens the element, or closes it when already open. Elements opened after
// it are closed first and opened again, so nesting stays valid.
func (ir *inlineRenderer) toggle(tag string) {
	idx := -1
	for j, t := range ir.open {
		if t == tag {
			idx = j
		}
	}
	if idx < 0 {
		ir.br.Render("<", tag, ">")
		ir.open = append(ir.open, tag)
		return
	}

	above := append([]string(nil), ir.open[idx+1:]...)
	for j := len(ir.open) - 1; j >= idx; j-- {
		ir.br.Render("</", ir.open[j], ">")
	}
	ir.open = ir.open[:idx]
	for _, t := range above {
		ir.br.Render("<", t, ">")
		ir.open = append(ir.open, t)
	}
}

func (ir *inlineRenderer) toggleBoth() {
	switch len(ir.open) {
	case 0:
		ir.br.Render("<b><i>")
		ir.open = append(ir.open, "b", "i")
	case 1:
		if ir.open[0] == "i" {
			ir.toggle("i")
			ir.toggle("b")
		} else {
			ir.toggle("b")
			ir.toggle("i")
		}
	default:
		ir.closeAll()
	}
}

func (ir *inlineRenderer) closeAll() {
	for j := len(ir.open) - 1; j >= 0; j-- {
		ir.br.Render("</", ir.open[j], ">")
	}
	ir.open = ir.open[:0]
}

// entityLength returns the length of the character reference at the start of s, or 0.
func entityLength(s string) int {
	if len(s) < 3 || s[0] != '&' {
		return 0
	}
	i := 1
	switch {
	case s[i] == '#':
		i++
		hex := i < len(s) && (s[i] == 'x' || s[i] == 'X')
		if hex {
			i++
		}
		start := i
		for i < len(s) && (isDigit(s[i]) || (hex && isHexLetter(s[i]))) {
			i++
		}
		if i == start {
			return 0
		}
	case isTagNameByte(s[i]):
		for i < len(s) && isTagNameByte(s[i]) {
			i++
		}
	default:
		return 0
	}
	if i < len(s) && s[i] == ';' {
		return i + 1
	}
	return 0
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHexLetter(c byte) bool {
	return ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
