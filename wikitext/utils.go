package wikitext

import (
	"strings"

	"golang.org/x/net/html"
)

// Attribute is a key/value pair found in the opening tag of an element.
type Attribute struct {
	Key string
	Val string
}

// attrValue returns the value of the attribute with the given key (case insensitive).
func attrValue(attrs []Attribute, key string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func skipWhiteSpace(line string) string {
	for i := 0; i < len(line); i++ {
		if c := line[i]; c != ' ' && c != '\t' && c != '\n' {
			return line[i:]
		}
	}
	return ""
}

// runLength returns the number of consecutive c bytes starting at s[i].
func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// asciiLower lowercases only ASCII letters, so offsets in the result are valid in s.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func isTagNameByte(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isWordByte(c byte) bool {
	return isTagNameByte(c) || c == '_'
}

// tagInfo describes an HTML-like tag found in the source.
type tagInfo struct {
	Name        string
	Closing     bool
	SelfClosing bool
	Attrs       []Attribute
	Start, End  int
}

// scanTag parses a tag starting at s[i], which must be '<'. The name is returned
// lowercased. It reports false when the text at i does not form a tag.
func scanTag(s string, i int) (tagInfo, bool) {
	t := tagInfo{Start: i}
	j := i + 1
	if j < len(s) && s[j] == '/' {
		t.Closing = true
		j++
	}
	nameStart := j
	for j < len(s) && isTagNameByte(s[j]) {
		j++
	}
	if j == nameStart {
		return t, false
	}
	t.Name = asciiLower(s[nameStart:j])

	if j >= len(s) {
		return t, false
	}
	if c := s[j]; c != '>' && c != '/' && c != ' ' && c != '\t' && c != '\n' {
		return t, false
	}

	// Find the end of the tag, skipping quoted attribute values
	attrStart := j
	var quote byte
	for ; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if c == '>' {
			break
		}
		if c == '<' {
			return t, false
		}
	}
	if j >= len(s) {
		return t, false
	}
	raw := s[attrStart:j]
	if strings.HasSuffix(raw, "/") {
		t.SelfClosing = true
		raw = raw[:len(raw)-1]
	}
	t.Attrs = parseAttributes(raw)
	t.End = j + 1
	return t, true
}

// findCloseTag searches lower (an ASCII-lowercased source) from offset for the closing
// tag of name. It returns the start and end offsets of the closing tag, or -1, -1.
func findCloseTag(lower string, from int, name string) (int, int) {
	pattern := "</" + name
	for from < len(lower) {
		i := strings.Index(lower[from:], pattern)
		if i < 0 {
			return -1, -1
		}
		start := from + i
		j := start + len(pattern)
		for j < len(lower) && (lower[j] == ' ' || lower[j] == '\t' || lower[j] == '\n') {
			j++
		}
		if j < len(lower) && lower[j] == '>' {
			return start, j + 1
		}
		from = start + len(pattern)
	}
	return -1, -1
}

// parseAttributes reads the attributes of a tag, tolerating malformed input.
func parseAttributes(raw string) []Attribute {
	var attrs []Attribute
	raw = skipWhiteSpace(raw)
	for len(raw) > 0 {
		attr := Attribute{}

		// Select the first word, ending on whitespace or '='
		i := 0
		for i < len(raw) && raw[i] != ' ' && raw[i] != '\t' && raw[i] != '\n' && raw[i] != '=' {
			i++
		}
		attr.Key = raw[:i]
		raw = skipWhiteSpace(raw[i:])

		if len(raw) > 0 && raw[0] == '=' {
			raw = skipWhiteSpace(raw[1:])
			switch {
			case len(raw) == 0:
			case raw[0] == '"' || raw[0] == '\'':
				quote := raw[0]
				end := strings.IndexByte(raw[1:], quote)
				if end < 0 {
					attr.Val = raw[1:]
					raw = ""
				} else {
					attr.Val = raw[1 : end+1]
					raw = raw[end+2:]
				}
			default:
				end := strings.IndexAny(raw, " \t\n")
				if end < 0 {
					end = len(raw)
				}
				attr.Val = raw[:end]
				raw = raw[end:]
			}
		}

		if len(attr.Key) > 0 {
			attrs = append(attrs, attr)
		} else if len(raw) > 0 {
			// Stray '=' or garbage, skip one byte to make progress
			raw = raw[1:]
		}
		raw = skipWhiteSpace(raw)
	}
	return attrs
}

// lineColumn converts a byte offset into 1-based line and column numbers.
func lineColumn(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	line := strings.Count(text[:offset], "\n") + 1
	column := offset - strings.LastIndexByte(text[:offset], '\n')
	return line, column
}

// escapeHTML escapes the five characters special in HTML text and attribute values.
func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// literalEscaper neutralises everything that wiki markup or HTML could interpret.
var literalEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"{", "&#123;",
	"}", "&#125;",
	"[", "&#91;",
	"]", "&#93;",
	"|", "&#124;",
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
