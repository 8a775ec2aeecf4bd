package wikitext

import (
	"strconv"
	"strings"

	"github.com/hesusruiz/wikirite/sliceedit"
)

// note is a footnote. Several uses of a named reference share one note.
type note struct {
	number int
	name   string
	text   string
	html   string
	uses   []string // ids of the markers pointing to the note
}

// extractReferences replaces <ref> elements by numbered markers and <references/>
// by the list of notes. When there is no <references/> the list is appended at
// the end of the document.
func (st *renderState) extractReferences(text string) string {
	lower := asciiLower(text)
	if !strings.Contains(lower, "<ref") {
		return text
	}

	b := sliceedit.NewBufferString(text)
	listed := false
	for pos := 0; pos < len(lower); {
		i := strings.Index(lower[pos:], "<")
		if i < 0 {
			break
		}
		i += pos
		tag, ok := scanTag(text, i)
		if !ok || (tag.Name != "ref" && tag.Name != "references") {
			pos = i + 1
			continue
		}

		switch {
		case tag.Closing:
			// Stray closing tag
			b.Delete(tag.Start, tag.End)
			pos = tag.End

		case tag.Name == "references":
			end := tag.End
			if !tag.SelfClosing {
				if closeStart, closeEnd := findCloseTag(lower, tag.End, "references"); closeStart >= 0 {
					st.defineNotes(text[tag.End:closeStart])
					end = closeEnd
				}
			}
			b.Replace(tag.Start, end, "\n"+st.notesPlaceholder()+"\n")
			listed = true
			pos = end

		default:
			name := strings.TrimSpace(attrValue(tag.Attrs, "name"))
			content, end := "", tag.End
			if !tag.SelfClosing {
				closeStart, closeEnd := findCloseTag(lower, tag.End, "ref")
				if closeStart < 0 {
					st.syntaxError(st.p.fileName, text, i, "unterminated <ref> tag")
					closeStart, closeEnd = len(text), len(text)
				}
				content, end = text[tag.End:closeStart], closeEnd
			}
			b.Replace(tag.Start, end, st.refMarker(name, content))
			pos = end
		}
	}

	if len(st.notes) > 0 && !listed {
		b.Insert(len(text), "\n"+st.notesPlaceholder()+"\n")
	}
	return b.String()
}

// refMarker registers a use of a reference and returns the placeholder of its marker.
func (st *renderState) refMarker(name, content string) string {
	content = strings.TrimSpace(content)

	n, found := st.namedNotes[name]
	if !found || name == "" {
		n = &note{number: len(st.notes) + 1, name: name}
		st.notes = append(st.notes, n)
		if name != "" {
			st.namedNotes[name] = n
		}
	}
	if n.text == "" && content != "" {
		n.text = content
		n.html = st.renderInline(strings.ReplaceAll(content, "\n", " "))
	}

	num := strconv.Itoa(n.number)
	id := "cite_ref-" + num
	if len(n.uses) > 0 {
		id += "_" + strconv.Itoa(len(n.uses))
	}
	n.uses = append(n.uses, id)

	st.references = append(st.references, Reference{Number: n.number, Name: name, Text: n.text, HTML: n.html})

	markup := `<sup class="reference" id="` + id + `"><a href="#cite_note-` + num + `">[` + num + `]</a></sup>`
	return st.addSpan(&ProtectedSpan{Kind: SpanMarkup, html: markup})
}

// defineNotes takes the named references listed inside <references>...</references>
// as definitions for markers used without content.
func (st *renderState) defineNotes(body string) {
	lower := asciiLower(body)
	for pos := 0; pos < len(lower); {
		i := strings.Index(lower[pos:], "<ref")
		if i < 0 {
			return
		}
		i += pos
		tag, ok := scanTag(body, i)
		if !ok || tag.Name != "ref" || tag.Closing || tag.SelfClosing {
			pos = i + 1
			continue
		}
		closeStart, closeEnd := findCloseTag(lower, tag.End, "ref")
		if closeStart < 0 {
			return
		}
		name := strings.TrimSpace(attrValue(tag.Attrs, "name"))
		if n, found := st.namedNotes[name]; found && n.text == "" {
			n.text = strings.TrimSpace(body[tag.End:closeStart])
			n.html = st.renderInline(strings.ReplaceAll(n.text, "\n", " "))
			for i := range st.references {
				if st.references[i].Number == n.number {
					st.references[i].Text, st.references[i].HTML = n.text, n.html
				}
			}
		}
		pos = closeEnd
	}
}

func (st *renderState) notesPlaceholder() string {
	return st.addSpan(&ProtectedSpan{Kind: SpanMarkup, block: true, render: st.renderNotes})
}

// renderNotes renders the ordered list of notes.
func (st *renderState) renderNotes() string {
	if len(st.notes) == 0 {
		return ""
	}
	var br ByteRenderer
	br.Render(`<ol class="references">`)
	for _, n := range st.notes {
		num := strconv.Itoa(n.number)
		br.Render(`<li id="cite_note-`, num, `">`)
		for i, id := range n.uses {
			label := "^"
			if len(n.uses) > 1 {
				label = string(rune('a' + i%26))
			}
			br.Render(`<a href="#`, id, `">`, label, `</a> `)
		}
		br.Render(n.html, `</li>`)
	}
	br.Render(`</ol>`)
	return br.String()
}
