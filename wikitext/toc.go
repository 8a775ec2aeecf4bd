package wikitext

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// outlineLevel is one level of the heading outline: the heading level and how
// many headings were seen at it.
type outlineLevel struct {
	level int
	count int
}

// outlineNumber advances the outline with a heading of the given level and
// returns its number, like "2" or "2.1".
func (st *renderState) outlineNumber(level int) string {
	for len(st.outline) > 0 && st.outline[len(st.outline)-1].level > level {
		st.outline = st.outline[:len(st.outline)-1]
	}
	if n := len(st.outline); n > 0 && st.outline[n-1].level == level {
		st.outline[n-1].count++
	} else {
		st.outline = append(st.outline, outlineLevel{level: level, count: 1})
	}

	numbers := make([]string, len(st.outline))
	for i, o := range st.outline {
		numbers[i] = strconv.Itoa(o.count)
	}
	return strings.Join(numbers, ".")
}

// anchorID returns a unique anchor for a heading text.
func (st *renderState) anchorID(text string) string {
	id := strings.Join(strings.Fields(norm.NFC.String(text)), "_")
	if id == "" {
		id = "section"
	}
	st.anchors[id]++
	if n := st.anchors[id]; n > 1 {
		return id + "_" + strconv.Itoa(n)
	}
	return id
}

// tocPlaceholder returns the placeholder marking where the table of contents goes.
func (st *renderState) tocPlaceholder() string {
	if st.tocSpan == "" {
		st.tocSpan = st.addSpan(&ProtectedSpan{Kind: SpanMarkup, block: true, render: st.renderTOC})
	}
	return st.tocSpan
}

func (st *renderState) showTOC() bool {
	if st.hasSwitch("NOTOC") || len(st.headings) == 0 {
		return false
	}
	return len(st.headings) >= 4 || st.hasSwitch("FORCETOC") || st.hasSwitch("TOC")
}

// renderTOC builds the table of contents from the headings seen during the render.
func (st *renderState) renderTOC() string {
	if !st.showTOC() {
		return ""
	}

	root := &Node{Type: DocumentNode}
	var lists []*Node // lists[d-1] is the open list at depth d
	for _, h := range st.headings {
		depth := min(strings.Count(h.Number, ".")+1, len(lists)+1)
		if depth == len(lists)+1 {
			parent := root
			if depth > 1 {
				parent = lists[depth-2].LastChild
			}
			lists = append(lists, parent.NewChild(ListNode, "ul"))
		} else {
			lists = lists[:depth]
		}

		item := lists[depth-1].NewChild(ItemNode, "li")
		item.Class = "toclevel-" + strconv.Itoa(depth)
		item.Content = `<a href="#` + escapeHTML(h.ID) + `"><span class="tocnumber">` + h.Number +
			`</span> <span class="toctext">` + escapeHTML(h.Text) + `</span></a>`
	}

	var br ByteRenderer
	br.Render(`<div id="toc" class="toc"><div id="toctitle"><h2>Contents</h2></div>`)
	for list := root.FirstChild; list != nil; list = list.NextSibling {
		list.RenderHTML(&br)
	}
	br.Render(`</div>`)
	return br.String()
}
