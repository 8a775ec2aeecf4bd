package wikitext

import (
	"regexp"

	"github.com/hesusruiz/wikirite/sliceedit"
)

// behaviourSwitches are the __NAME__ words consumed from the text.
var behaviourSwitches = map[string]bool{
	"NOTOC":            true,
	"FORCETOC":         true,
	"TOC":              true,
	"NOEDITSECTION":    true,
	"NEWSECTIONLINK":   true,
	"NONEWSECTIONLINK": true,
	"NOGALLERY":        true,
	"HIDDENCAT":        true,
	"INDEX":            true,
	"NOINDEX":          true,
	"STATICREDIRECT":   true,
	"NOTITLECONVERT":   true,
	"NOTC":             true,
	"NOCONTENTCONVERT": true,
	"NOCC":             true,
}

var switchRe = regexp.MustCompile(`__([A-Z]+)__`)

// consumeSwitches records and removes the behaviour switches of text. The first
// __TOC__ becomes the position of the table of contents.
func (st *renderState) consumeSwitches(text string) string {
	matches := switchRe.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}
	b := sliceedit.NewBufferString(text)
	for _, m := range matches {
		name := text[m[2]:m[3]]
		if !behaviourSwitches[name] {
			continue
		}
		if name == "TOC" && !st.switches["TOC"] {
			st.switches[name] = true
			b.Replace(m[0], m[1], st.tocPlaceholder())
			continue
		}
		st.switches[name] = true
		b.Delete(m[0], m[1])
	}
	return b.String()
}

func (st *renderState) hasSwitch(name string) bool {
	return st.switches[name]
}
