package wikitext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expand runs the template preprocessor over src, without rendering.
func expand(src string, templates map[string]string, opts ...Option) (string, *renderState) {
	lookup := func(name string) (string, bool) {
		body, ok := templates[name]
		return body, ok
	}
	p := NewParser(src, append([]Option{WithTemplates(lookup)}, opts...)...)
	st := newRenderState(p, RenderOptions{})
	text := st.extract(normalizeNewlines(src), p.fileName)
	text = applyInclusionMode(text, directView)
	text = st.expandText(text, st.topFrame())
	return stripSentinels(text), st
}

func TestParseBraces(t *testing.T) {
	t.Run("template with args", func(t *testing.T) {
		nodes := parseBraces("a{{name|x|k=v}}b")
		require.Len(t, nodes, 3)
		assert.Equal(t, "a", nodes[0].text)
		assert.Equal(t, templateBrace, nodes[1].kind)
		require.Len(t, nodes[1].parts, 3)
		assert.Equal(t, "name", nodes[1].parts[0][0].text)
		assert.Equal(t, "k=v", nodes[1].parts[2][0].text)
		assert.Equal(t, "b", nodes[2].text)
	})

	t.Run("template as parameter name", func(t *testing.T) {
		nodes := parseBraces("{{{{{a}}|b}}}")
		require.Len(t, nodes, 1)
		assert.Equal(t, paramBrace, nodes[0].kind)
		require.Len(t, nodes[0].parts, 2)
		require.Len(t, nodes[0].parts[0], 1)
		assert.Equal(t, templateBrace, nodes[0].parts[0][0].kind)
		assert.Equal(t, "b", nodes[0].parts[1][0].text)
	})

	t.Run("pipes inside links are not separators", func(t *testing.T) {
		nodes := parseBraces("{{t|[[a|b]]|c}}")
		require.Len(t, nodes, 1)
		require.Len(t, nodes[0].parts, 3)
		assert.Equal(t, linkBrace, nodes[0].parts[1][0].kind)
	})

	t.Run("unclosed is text", func(t *testing.T) {
		nodes := parseBraces("{{a|b")
		require.Len(t, nodes, 1)
		assert.Equal(t, textBrace, nodes[0].kind)
		assert.Equal(t, "{{a|b", nodes[0].text)
	})

	t.Run("single braces are text", func(t *testing.T) {
		nodes := parseBraces("{a} }} |")
		require.Len(t, nodes, 1)
		assert.Equal(t, "{a} }} |", nodes[0].text)
	})
}

func TestParserFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "if true", src: "{{#if: x |yes|no}}", want: "yes"},
		{name: "if blank", src: "{{#if:   |yes|no}}", want: "no"},
		{name: "if no else", src: "{{#if:|yes}}", want: ""},
		{name: "ifeq numeric", src: "{{#ifeq: 01 | 1 |same|diff}}", want: "same"},
		{name: "ifeq text", src: "{{#ifeq:a|b|same|diff}}", want: "diff"},
		{name: "iferror ok", src: "{{#iferror: fine |bad|good}}", want: "good"},
		{name: "iferror passthrough", src: "{{#iferror: fine |bad}}", want: "fine"},
		{name: "iferror error element", src: `{{#iferror:<span class="error">x</span>|bad|good}}`, want: "bad"},
		{name: "switch fallthrough", src: "{{#switch: b |a=1|b|c=2|#default=3}}", want: "2"},
		{name: "switch default", src: "{{#switch: z |a=1|#default=3}}", want: "3"},
		{name: "switch bare default", src: "{{#switch: z |a=1|other}}", want: "other"},
		{name: "switch no match", src: "{{#switch: z |a=1}}", want: ""},
		{name: "switch numeric", src: "{{#switch: 2.0 |1=one|2=two}}", want: "two"},
		{name: "lc", src: "{{lc:ÀB}}", want: "àb"},
		{name: "uc", src: "{{uc: abc }}", want: "ABC"},
		{name: "ucfirst", src: "{{ucfirst:élan}}", want: "Élan"},
		{name: "lcfirst", src: "{{lcfirst:ABC}}", want: "aBC"},
		{name: "urlencode", src: "{{urlencode:a b&c}}", want: "a+b%26c"},
		{name: "case insensitive name", src: "{{#IF:x|yes}}", want: "yes"},
		{name: "pipe magic word", src: "a{{!}}b", want: "a|b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := expand(tt.src, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUntakenBranchNotExpanded(t *testing.T) {
	got, st := expand("{{#if:x|ok|{{loop}}}}", map[string]string{"loop": "{{loop}}"})
	assert.Equal(t, "ok", got)
	assert.Empty(t, st.syntaxErrors)
	assert.Zero(t, st.expansions)
}

func TestTemplateArguments(t *testing.T) {
	templates := map[string]string{
		"p":      "{{{1}}}-{{{x}}}",
		"q":      "[{{{1}}}]",
		"d":      "{{{1|{{{2|deep}}}}}}",
		"name":   "test",
		"test":   "busted",
		"nested": "{{q|{{{1}}}}}",
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "named wins over positional", src: "{{p|1=named|pos|x = trimmed }}", want: "named-trimmed"},
		{name: "positional keeps whitespace", src: "{{q| a }}", want: "[ a ]"},
		{name: "missing argument", src: "{{q}}", want: "[]"},
		{name: "nested defaults", src: "{{d}}", want: "deep"},
		{name: "second default", src: "{{d||two}}", want: ""},
		{name: "argument passed down", src: "{{nested|v}}", want: "[v]"},
		{name: "template prefix", src: "{{Template:test}}", want: "busted"},
		{name: "leading colon", src: "{{:test}}", want: "busted"},
		{name: "computed name", src: "{{ {{name}} }}", want: "busted"},
		{name: "empty head", src: "{{|x}}", want: "{{|x}}"},
		{name: "missing template", src: "a{{nothere}}b", want: "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := expand(tt.src, templates)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopLevelParams(t *testing.T) {
	got, _ := expand("{{{PAGENAME}}} {{{missing}}}|{{{missing|fallback}}}", nil,
		WithParams(map[string]string{"PAGENAME": "Main"}))
	assert.Equal(t, "Main |fallback", got)
}

func TestTemplateLookupCached(t *testing.T) {
	calls := 0
	lookup := func(name string) (string, bool) {
		calls++
		return "x", name == "t"
	}
	p := NewParser("{{t}}{{t}}{{u}}{{u}}", WithTemplates(lookup))
	assert.Equal(t, "\n<p>xx</p>", p.ToHTML(RenderOptions{}))
	assert.Equal(t, 2, calls)
}

func TestExpansionGuards(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		templates := map[string]string{"d1": "1{{d2}}", "d2": "2{{d3}}", "d3": "3{{d4}}", "d4": "end"}
		got, st := expand("{{#iferror:{{d1}}|too deep|ok}}", templates, WithMaxDepth(3))
		assert.Equal(t, "too deep", got)
		require.Len(t, st.syntaxErrors, 1)
		assert.Equal(t, "Template:d4:0:0: template nesting too deep", st.syntaxErrors[0].Error())

		got, _ = expand("{{d1}}", templates, WithMaxDepth(4))
		assert.Equal(t, "123end", got)
	})

	t.Run("budget", func(t *testing.T) {
		got, st := expand(strings.Repeat("{{x}}", 10), map[string]string{"x": "x"}, WithMaxExpansions(5))
		assert.Equal(t, "xxxxx", got)
		assert.Len(t, st.syntaxErrors, 5)
	})

	t.Run("mutual recursion", func(t *testing.T) {
		got, st := expand("[{{a}}]", map[string]string{"a": "a{{b}}", "b": "b{{a}}"})
		assert.Equal(t, "[ab]", got)
		require.Len(t, st.syntaxErrors, 1)
		assert.Equal(t, "template loop detected", st.syntaxErrors[0].Msg)
	})
}

func TestInclusionControl(t *testing.T) {
	templates := map[string]string{
		"oi":    "before<onlyinclude>inside</onlyinclude>after<onlyinclude>!</onlyinclude>",
		"mixed": "<noinclude>doc</noinclude>body<includeonly> only</includeonly>",
		"open":  "shown<noinclude>never closed",
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "onlyinclude", src: "{{oi}}", want: "inside!"},
		{name: "onlyinclude in direct view", src: "a<onlyinclude>b</onlyinclude>c", want: "abc"},
		{name: "noinclude and includeonly", src: "{{mixed}}", want: "body only"},
		{name: "unterminated noinclude", src: "{{open}}", want: "shown"},
		{name: "unterminated includeonly", src: "x<includeonly>y", want: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := expand(tt.src, templates)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProtectedInsideTemplates(t *testing.T) {
	templates := map[string]string{"code": "<nowiki>{{{1}}}</nowiki>{{{1}}}"}
	out := NewParser("{{code|v}}", WithTemplates(func(name string) (string, bool) {
		body, ok := templates[name]
		return body, ok
	})).ToHTML(RenderOptions{})
	assert.Equal(t, "\n<p>&#123;&#123;&#123;1&#125;&#125;&#125;v</p>", out)
}
