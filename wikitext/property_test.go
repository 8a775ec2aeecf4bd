//go:build property
// +build property

package wikitext

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// markupFragments are joined at random to build documents mixing every construct.
var markupFragments = []interface{}{
	"text", " ", "\n", "\n\n", "{{", "}}", "{{{", "}}}", "|", "=", "[[", "]]", "[", "]",
	"''", "'''", "'''''", "== h ==", "* ", "# ", "; ", ": ", "{|", "|}", "|-", "!", "||",
	"<nowiki>", "</nowiki>", "<pre>", "</pre>", "<ref>", "</ref>", "<references/>",
	"<noinclude>", "</noinclude>", "<includeonly>", "<onlyinclude>", "<!--", "-->",
	"<script>alert(1)</script>", `<a href="javascript:alert(1)" onclick="x()">`,
	"{{loop}}", "{{a|b}}", "{{{1|d}}}", "{{#if:x|y}}", "{{#switch:a|a=1}}",
	"http://example.com", "[http://example.com t]", "[[File:x.png|thumb|c]]",
	"[[Category:C]]", "[[:]]", "[[[", "]]]", "[http:// ]", "__TOC__", "__NOTOC__", "----", "&amp;", "&", "<", ">",
	"", "1", "",
}

var propertyTemplates = map[string]string{
	"loop": "{{loop}}",
	"a":    "{{{1}}}{{b|{{{1}}}}}",
	"b":    "<noinclude>x</noinclude>{{a|{{{1}}}}}",
}

func propertyParser(src string) *Parser {
	return NewParser(src, WithTemplates(func(name string) (string, bool) {
		body, ok := propertyTemplates[name]
		return body, ok
	}))
}

func genDocument() gopter.Gen {
	return gen.SliceOfN(24, gen.OneConstOf(markupFragments...)).Map(func(parts []string) string {
		return strings.Join(parts, "")
	})
}

// isSanitized reports whether the rendered HTML is free of scripts, event
// handlers and javascript URLs. Escaped text mentioning them is fine.
func isSanitized(out string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	if err != nil {
		return false
	}
	if doc.Find("script").Length() > 0 {
		return false
	}
	safe := true
	doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, attr := range sel.Nodes[0].Attr {
			key := strings.ToLower(attr.Key)
			val := strings.ToLower(strings.TrimSpace(attr.Val))
			if strings.HasPrefix(key, "on") ||
				((key == "href" || key == "src") && strings.HasPrefix(val, "javascript:")) {
				safe = false
				return false
			}
		}
		return true
	})
	return safe
}

// TestRenderProperties checks the guarantees that hold for any input.
func TestRenderProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: rendering never fails and is deterministic
	properties.Property("render is total and deterministic", prop.ForAll(
		func(src string) bool {
			p := propertyParser(src)
			first := p.Render(RenderOptions{})
			second := p.Render(RenderOptions{})
			for _, e := range first.SyntaxErrors {
				if strings.HasPrefix(e.Msg, "render failed") {
					return false
				}
			}
			return first.HTML == second.HTML
		},
		genDocument(),
	))

	// Property: scripts and event handlers never reach the output
	properties.Property("output is sanitized", prop.ForAll(
		func(src string) bool {
			return isSanitized(propertyParser(src).ToHTML(RenderOptions{}))
		},
		genDocument(),
	))

	// Property: internal markers never leak
	properties.Property("no private markers in output", prop.ForAll(
		func(src string) bool {
			out := propertyParser(src).ToHTML(RenderOptions{})
			return !strings.Contains(out, placeholderMark) && !strings.Contains(out, sentinelMark)
		},
		genDocument(),
	))

	// Property: arbitrary unicode text is rendered without losing its letters
	properties.Property("plain words survive", prop.ForAll(
		func(word string) bool {
			if word == "" {
				return true
			}
			out := NewParser("before " + word + " after").ToHTML(RenderOptions{})
			return strings.Contains(out, word)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
