package wikitext

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkBrackets(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want map[int]int
	}{
		{name: "simple", s: "[[a]]", want: map[int]int{0: 3}},
		{name: "odd opening run", s: "[[[a]]", want: map[int]int{1: 4}},
		{name: "nested", s: "[[a [[b]] c]]", want: map[int]int{0: 11, 4: 7}},
		{name: "double nested", s: "[[[[a]]]]", want: map[int]int{0: 7, 2: 5}},
		{name: "unclosed", s: "[[a [[b", want: nil},
		{name: "only closers", s: "a]]]", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := linkBrackets(tt.s)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTripleBracketLink(t *testing.T) {
	p := newTestParser("[[[a]]")
	out := p.ToHTML(RenderOptions{})
	assert.Contains(t, out, `[<a href="a" title="a">a</a>`)
	require.Len(t, p.InternalLinks(), 1)
}

func TestUnclosedLinksRenderInLinearTime(t *testing.T) {
	tests := []struct {
		name string
		unit string
	}{
		{name: "internal", unit: "[[a "},
		{name: "external", unit: "[//x "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Repeat(tt.unit, 40000)
			start := time.Now()
			p := newTestParser(src)
			out := p.ToHTML(RenderOptions{})
			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Contains(t, out, strings.Repeat(strings.TrimSpace(tt.unit)+" ", 3))
			assert.Empty(t, p.InternalLinks())
			assert.Empty(t, p.ExternalLinks())
		})
	}
}

func TestEmptyLinkTargets(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "colon only", src: "[[:]]", want: "[[:]]"},
		{name: "blank colon", src: "[[ : |x]]", want: "[[ : |x]]"},
		{name: "scheme only", src: "[http:// ]", want: "[http:// ]"},
		{name: "scheme and closer", src: "[http://]", want: "[http://]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(tt.src)
			out := p.ToHTML(RenderOptions{})
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, "<a")
			assert.Empty(t, p.InternalLinks())
			assert.Empty(t, p.ExternalLinks())
		})
	}
}

func TestMarkupInTagAttributes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		title string
	}{
		{name: "nowiki", src: `<span title="<nowiki>x</nowiki>">t</span>`, title: "<nowiki>x</nowiki>"},
		{name: "source", src: `<span title="<source lang=go>x</source>">t</span>`, title: "<source lang=go>x</source>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(tt.src)
			assert.NotContains(t, out, "mw-highlight")
			assert.NotContains(t, out, "%EE%80")
			assert.NotContains(t, out, placeholderMark)

			doc := parseHTML(t, out)
			title, ok := doc.Find("span").Attr("title")
			require.True(t, ok)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, "t", doc.Find("span").Text())
		})
	}
}

func TestHeadingWithLink(t *testing.T) {
	out := newTestParser("== See [[X]] ==").ToHTML(RenderOptions{NoEdit: true})
	assert.Contains(t, out, `<a name="See_X"></a>`)

	doc := parseHTML(t, out)
	assert.Equal(t, "", doc.Find(`a[name="See_X"]`).Text())
	assert.Equal(t, "X", doc.Find(`span.mw-headline a[href="X"]`).Text())
	assert.Equal(t, "See X", doc.Find("span.mw-headline").Text())
}
