package wikitext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hesusruiz/wikirite/sliceedit"
)

// A SpanKind identifies what a protected span holds.
type SpanKind int

const (
	SpanPre SpanKind = iota + 1
	SpanNowiki
	SpanCode
	SpanMath
	SpanSource
	SpanDiagram

	// Generated content. Edit links are trusted and skip sanitizing, markup
	// (reference markers, reference lists, the table of contents) is sanitized.
	SpanEditLink
	SpanMarkup
)

func (k SpanKind) String() string {
	switch k {
	case SpanPre:
		return "pre"
	case SpanNowiki:
		return "nowiki"
	case SpanCode:
		return "code"
	case SpanMath:
		return "math"
	case SpanSource:
		return "source"
	case SpanDiagram:
		return "d2"
	case SpanEditLink:
		return "editlink"
	case SpanMarkup:
		return "markup"
	}
	return "span(" + strconv.Itoa(int(k)) + ")"
}

// literal reports whether the span is reinserted after sanitizing.
func (k SpanKind) literal() bool {
	return k != SpanMarkup
}

// protectedTags maps the tags whose content is never interpreted to their span kind.
var protectedTags = map[string]SpanKind{
	"pre":             SpanPre,
	"nowiki":          SpanNowiki,
	"code":            SpanCode,
	"math":            SpanMath,
	"source":          SpanSource,
	"syntaxhighlight": SpanSource,
	"d2":              SpanDiagram,
}

// ProtectedSpan is a region of the source replaced by a placeholder until the final output.
type ProtectedSpan struct {
	Kind  SpanKind
	Tag   string
	Attrs []Attribute
	Raw   string

	// block spans stand on their own line and are not wrapped in paragraphs
	block bool

	// html is the output of generated spans, or render computes it on demand
	html   string
	render func() string
}

const (
	placeholderMark = "\uE000"
	sentinelMark    = "\uE001"
)

var placeholderRe = regexp.MustCompile(placeholderMark + `([0-9]+)` + placeholderMark)

// stripReserved removes the private-use characters used internally, so they can never
// be forged by the input.
var reservedStripper = strings.NewReplacer(placeholderMark, "", sentinelMark, "")

func stripReserved(s string) string {
	if !strings.Contains(s, placeholderMark) && !strings.Contains(s, sentinelMark) {
		return s
	}
	return reservedStripper.Replace(s)
}

func placeholder(i int) string {
	return placeholderMark + strconv.Itoa(i) + placeholderMark
}

// addSpan registers the span and returns its placeholder.
func (st *renderState) addSpan(sp *ProtectedSpan) string {
	st.spans = append(st.spans, sp)
	return placeholder(len(st.spans) - 1)
}

// spanAt returns the span whose placeholder starts s, if any.
func (st *renderState) spanAt(s string) (*ProtectedSpan, bool) {
	if !strings.HasPrefix(s, placeholderMark) {
		return nil, false
	}
	loc := placeholderRe.FindStringSubmatchIndex(s)
	if loc == nil || loc[0] != 0 {
		return nil, false
	}
	i, err := strconv.Atoi(s[loc[2]:loc[3]])
	if err != nil || i >= len(st.spans) {
		return nil, false
	}
	return st.spans[i], true
}

// extract replaces comments and protected tags in text with placeholders.
// origin names the text in diagnostics.
func (st *renderState) extract(text string, origin string) string {
	text = stripReserved(text)
	lower := asciiLower(text)
	b := sliceedit.NewBufferString(text)

	for pos := 0; pos < len(text); {
		i := strings.IndexByte(lower[pos:], '<')
		if i < 0 {
			break
		}
		i += pos

		if strings.HasPrefix(lower[i:], "<!--") {
			end := strings.Index(lower[i+4:], "-->")
			if end < 0 {
				st.syntaxError(origin, text, i, "unterminated comment")
				b.Delete(i, len(text))
				break
			}
			end = i + 4 + end + 3
			b.Delete(i, end)
			pos = end
			continue
		}

		tag, ok := scanTag(lower, i)
		if !ok {
			pos = i + 1
			continue
		}
		// Markup in the attribute values of other tags is left alone
		kind, protected := protectedTags[tag.Name]
		if tag.Closing || !protected {
			pos = tag.End
			continue
		}

		// Attributes are parsed again from the original text to keep their case
		original, _ := scanTag(text, i)
		span := &ProtectedSpan{Kind: kind, Tag: tag.Name, Attrs: original.Attrs}
		span.block = kind == SpanPre || kind == SpanSource || kind == SpanDiagram

		end := tag.End
		if !tag.SelfClosing {
			closeStart, closeEnd := findCloseTag(lower, tag.End, tag.Name)
			if closeStart < 0 {
				st.syntaxError(origin, text, i, "unterminated <"+tag.Name+"> tag")
				span.Raw = text[tag.End:]
				end = len(text)
			} else {
				span.Raw = text[tag.End:closeStart]
				end = closeEnd
			}
		}

		b.Replace(i, end, st.addSpan(span))
		pos = end
	}

	return b.String()
}

// spanHTML returns the final HTML of a span.
func (st *renderState) spanHTML(sp *ProtectedSpan) string {
	switch sp.Kind {
	case SpanPre:
		return "<pre>" + escapeLiteral(strings.TrimPrefix(sp.Raw, "\n")) + "</pre>"
	case SpanNowiki:
		return escapeLiteral(sp.Raw)
	case SpanCode:
		return "<code>" + escapeLiteral(sp.Raw) + "</code>"
	case SpanMath:
		return `<span class="texhtml">` + escapeLiteral(sp.Raw) + "</span>"
	case SpanSource:
		return st.p.highlight(sp)
	case SpanDiagram:
		return st.p.diagram(st, sp)
	}
	if sp.render != nil {
		return sp.render()
	}
	return sp.html
}

const maxSpanNesting = 8

// resolveSpans substitutes the placeholders of one class of spans by their HTML.
// Spans of the other class are left in place. Unknown placeholders are removed.
func (st *renderState) resolveSpans(text string, literal bool) string {
	return st.resolveSpansDepth(text, literal, 0)
}

func (st *renderState) resolveSpansDepth(text string, literal bool, depth int) string {
	if !strings.Contains(text, placeholderMark) {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(m[len(placeholderMark) : len(m)-len(placeholderMark)])
		if err != nil || i >= len(st.spans) {
			return ""
		}
		sp := st.spans[i]
		if sp.Kind.literal() != literal {
			return m
		}
		out := st.spanHTML(sp)
		if depth < maxSpanNesting {
			out = st.resolveSpansDepth(out, literal, depth+1)
		}
		return out
	})
}

// plainSpans substitutes placeholders by the raw text of their spans, for plain
// text uses like anchors and link titles.
func (st *renderState) plainSpans(text string) string {
	if !strings.Contains(text, placeholderMark) {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(m[len(placeholderMark) : len(m)-len(placeholderMark)])
		if err != nil || i >= len(st.spans) {
			return ""
		}
		sp := st.spans[i]
		switch sp.Kind {
		case SpanNowiki, SpanCode, SpanMath:
			return sp.Raw
		}
		return ""
	})
}
