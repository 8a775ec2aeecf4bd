package wikitext

import "strings"

const listMarkers = "*#:;"

func isListLine(line string) bool {
	return len(line) > 0 && strings.IndexByte(listMarkers, line[0]) >= 0
}

// listPrefix splits a list line into its run of markers and the item text.
func listPrefix(line string) (string, string) {
	i := 0
	for i < len(line) && strings.IndexByte(listMarkers, line[i]) >= 0 {
		i++
	}
	return line[:i], strings.TrimSpace(line[i:])
}

// listTag is the element of the list opened by a marker. ';' and ':' share one.
func listTag(marker byte) string {
	switch marker {
	case '*':
		return "ul"
	case '#':
		return "ol"
	}
	return "dl"
}

func itemTag(marker byte) string {
	switch marker {
	case ';':
		return "dt"
	case ':':
		return "dd"
	}
	return "li"
}

// listLevel is the list open at one nesting level and its current item.
type listLevel struct {
	list *Node
	item *Node
}

// processList renders a run of consecutive list lines. The nesting comes from
// comparing the marker prefix of each line with the previous one.
func (bp *blockParser) processList() {
	root := &Node{Type: DocumentNode}
	var levels []listLevel
	prev := ""

	for {
		line := bp.ReadLine()
		if line == nil {
			break
		}
		if !isListLine(line.Content) {
			bp.UnreadLine(line)
			break
		}
		prefix, text := listPrefix(line.Content)

		// Length of the common prefix, comparing list types
		common := 0
		for common < len(prefix) && common < len(prev) && listTag(prefix[common]) == listTag(prev[common]) {
			common++
		}

		last := prefix[len(prefix)-1]
		if common == len(prefix) {
			// Same list or a shallower one, a new item at the deepest level
			levels = levels[:len(prefix)]
			lv := &levels[len(levels)-1]
			lv.item = lv.list.NewChild(ItemNode, itemTag(last))
		} else {
			levels = levels[:common]
			for d := common; d < len(prefix); d++ {
				parent := root
				if d > 0 {
					parent = levels[d-1].item
				}
				list := parent.NewChild(ListNode, listTag(prefix[d]))
				levels = append(levels, listLevel{list: list, item: list.NewChild(ItemNode, itemTag(prefix[d]))})
			}
		}

		lv := &levels[len(levels)-1]
		if last == ';' {
			if colon := definitionColon(text); colon >= 0 {
				lv.item.Content = bp.st.renderInline(strings.TrimSpace(text[:colon]))
				lv.item = lv.list.NewChild(ItemNode, "dd")
				text = strings.TrimSpace(text[colon+1:])
			}
		}
		lv.item.Content = bp.st.renderInline(text)
		prev = prefix
	}

	root.RenderHTML(bp.br)
}

// definitionColon finds the colon separating term and definition in ";term : def",
// ignoring colons inside links and in URL schemes.
func definitionColon(text string) int {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(text[i:], "]]") && depth > 0:
			depth--
			i++
		case text[i] == ':' && depth == 0:
			if strings.HasPrefix(text[i:], "://") {
				continue
			}
			return i
		}
	}
	return -1
}
