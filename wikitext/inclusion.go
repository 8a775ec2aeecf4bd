package wikitext

import (
	"strings"

	"github.com/hesusruiz/wikirite/sliceedit"
)

// inclusionMode selects how noinclude, includeonly and onlyinclude regions are treated.
type inclusionMode int

const (
	// directView is used for the page being rendered.
	directView inclusionMode = iota
	// transclusion is used for the body of a template being expanded.
	transclusion
)

func isInclusionTag(name string) bool {
	return name == "noinclude" || name == "includeonly" || name == "onlyinclude"
}

// applyInclusionMode keeps or drops the inclusion-controlled regions of text.
// In direct view includeonly regions are dropped and noinclude markers stripped.
// In transclusion noinclude regions are dropped, includeonly markers stripped, and
// when onlyinclude regions exist only their content is kept.
func applyInclusionMode(text string, mode inclusionMode) string {
	if !strings.Contains(text, "<") {
		return text
	}
	if mode == transclusion {
		if only, found := onlyIncluded(text); found {
			text = only
		}
	}

	drop := "includeonly"
	if mode == transclusion {
		drop = "noinclude"
	}

	lower := asciiLower(text)
	b := sliceedit.NewBufferString(text)
	for pos := 0; pos < len(lower); {
		tag, found := nextInclusionTag(lower, pos)
		if !found {
			break
		}
		if tag.Name == drop && !tag.Closing && !tag.SelfClosing {
			_, closeEnd := findCloseTag(lower, tag.End, drop)
			if closeEnd < 0 {
				// Unterminated region extends to the end of the text
				b.Delete(tag.Start, len(text))
				break
			}
			b.Delete(tag.Start, closeEnd)
			pos = closeEnd
			continue
		}

		// Markers of kept regions, stray closing tags and onlyinclude markers vanish
		b.Delete(tag.Start, tag.End)
		pos = tag.End
	}
	return b.String()
}

// nextInclusionTag finds the next inclusion control tag at or after pos.
func nextInclusionTag(lower string, pos int) (tagInfo, bool) {
	for pos < len(lower) {
		i := strings.IndexByte(lower[pos:], '<')
		if i < 0 {
			return tagInfo{}, false
		}
		i += pos
		if tag, ok := scanTag(lower, i); ok && isInclusionTag(tag.Name) {
			return tag, true
		}
		pos = i + 1
	}
	return tagInfo{}, false
}

// onlyIncluded returns the concatenated content of the onlyinclude regions of text.
func onlyIncluded(text string) (string, bool) {
	lower := asciiLower(text)
	if !strings.Contains(lower, "<onlyinclude") {
		return "", false
	}

	var sb strings.Builder
	found := false
	for pos := 0; pos < len(lower); {
		tag, ok := nextInclusionTag(lower, pos)
		if !ok {
			break
		}
		pos = tag.End
		if tag.Name != "onlyinclude" || tag.Closing || tag.SelfClosing {
			continue
		}
		found = true
		closeStart, closeEnd := findCloseTag(lower, tag.End, "onlyinclude")
		if closeStart < 0 {
			sb.WriteString(text[tag.End:])
			break
		}
		sb.WriteString(text[tag.End:closeStart])
		pos = closeEnd
	}
	return sb.String(), found
}
