package wikitext

import "strings"

// processTable renders a table from "{|" to "|}". A table left open is closed at
// the end of the text.
func (bp *blockParser) processTable() {
	first := bp.ReadLine()
	br := bp.br
	br.Render("\n<table", tableAttrs(strings.TrimLeft(first.Content, " \t")[2:]), ">")

	rowOpen := false
	cellTag := ""
	closeCell := func() {
		if cellTag != "" {
			br.Render("</", cellTag, ">")
			cellTag = ""
		}
	}
	closeRow := func() {
		closeCell()
		if rowOpen {
			br.Render("</tr>")
			rowOpen = false
		}
	}

	for {
		line := bp.ReadLine()
		if line == nil {
			break
		}
		c := strings.TrimLeft(line.Content, " \t")

		switch {
		case strings.HasPrefix(c, "|}"):
			closeRow()
			br.Render("</table>")
			if rest := strings.TrimSpace(c[2:]); rest != "" {
				bp.para = append(bp.para, rest)
			}
			return

		case strings.HasPrefix(c, "{|"):
			// Nested table, inside the current cell
			bp.UnreadLine(line)
			bp.processTable()

		case strings.HasPrefix(c, "|+"):
			attrs, content := splitCellAttrs(c[2:])
			br.Render("<caption", tableAttrs(attrs), ">", bp.st.renderInline(strings.TrimSpace(content)), "</caption>")

		case strings.HasPrefix(c, "|-"):
			closeRow()
			br.Render("<tr", tableAttrs(strings.TrimLeft(c[2:], "-")), ">")
			rowOpen = true

		case c != "" && (c[0] == '|' || c[0] == '!'):
			tag, sep := "td", "||"
			if c[0] == '!' {
				tag = "th"
			}
			if !rowOpen {
				br.Render("<tr>")
				rowOpen = true
			}
			for _, cell := range splitCells(c[1:], sep, tag == "th") {
				closeCell()
				attrs, content := splitCellAttrs(cell)
				br.Render("<", tag, tableAttrs(attrs), ">", bp.st.renderInline(strings.TrimSpace(content)))
				cellTag = tag
			}

		case strings.TrimSpace(c) == "":

		default:
			// Continuation of the content of the current cell
			if cellTag == "" {
				if !rowOpen {
					br.Render("<tr>")
					rowOpen = true
				}
				br.Render("<td>")
				cellTag = "td"
			}
			br.Render("\n", bp.st.renderInline(c))
		}
	}

	closeRow()
	br.Render("</table>")
}

func tableAttrs(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return " " + s
}

// splitCells splits a row line in cells at "||" (and "!!" in header rows),
// ignoring separators inside links and templates.
func splitCells(s string, sep string, header bool) []string {
	var cells []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(s[i:], "]]") && depth > 0:
			depth--
			i++
		case depth == 0 && (strings.HasPrefix(s[i:], sep) || (header && strings.HasPrefix(s[i:], "!!"))):
			cells = append(cells, s[start:i])
			start = i + 2
			i++
		}
	}
	return append(cells, s[start:])
}

// splitCellAttrs separates "attrs | content" in a cell. Pipes inside links do not count.
func splitCellAttrs(cell string) (string, string) {
	depth := 0
	for i := 0; i < len(cell); i++ {
		switch {
		case strings.HasPrefix(cell[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(cell[i:], "]]") && depth > 0:
			depth--
			i++
		case cell[i] == '|' && depth == 0:
			if attrs := cell[:i]; strings.Contains(attrs, "=") && !strings.ContainsAny(attrs, "<>[]{}"+placeholderMark) {
				return attrs, cell[i+1:]
			}
			return "", cell
		}
	}
	return "", cell
}
