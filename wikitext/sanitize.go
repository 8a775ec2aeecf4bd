package wikitext

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	idPattern    = regexp.MustCompile(`^[\p{L}\p{N}_.:\-%]+$`)
	classPattern = regexp.MustCompile(`^[\p{L}\p{N}_\- ]+$`)
	alignPattern = regexp.MustCompile(`(?i)^(left|right|center|justify|top|middle|bottom|baseline)$`)
)

// NewPolicy returns the sanitizer policy used by default: the elements wiki markup
// can produce plus the usual formatting ones. Scripts, styles, event handlers
// and unknown attributes are removed.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "ftp", "ftps", "mailto", "news", "irc")

	p.AllowElements(
		"p", "br", "hr", "b", "i", "u", "s", "em", "strong", "small", "big", "sub", "sup",
		"tt", "code", "pre", "kbd", "var", "samp", "blockquote", "q", "cite", "abbr",
		"del", "ins", "strike", "center", "div", "span", "font",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "caption", "thead", "tbody", "tfoot", "tr", "th", "td",
		"figure", "figcaption", "img", "a",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("name").Matching(idPattern).OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	p.AllowAttrs("src").OnElements("img")
	p.AllowDataURIImages()
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.NumberOrPercent).OnElements("img", "table", "td", "th")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("border", "cellpadding", "cellspacing").Matching(bluemonday.Integer).OnElements("table")
	p.AllowAttrs("align", "valign").Matching(alignPattern).OnElements("table", "tr", "td", "th", "div", "p", "img", "caption")
	p.AllowAttrs("cite").OnElements("blockquote", "q", "del", "ins")
	p.AllowAttrs("color").Matching(regexp.MustCompile(`^#?[0-9a-zA-Z]+$`)).OnElements("font")

	p.AllowAttrs("id").Matching(idPattern).Globally()
	p.AllowAttrs("class").Matching(classPattern).Globally()
	p.AllowAttrs("title", "lang", "dir").Globally()
	p.AllowStyles(
		"color", "background", "background-color", "border", "border-collapse", "font-size",
		"font-weight", "font-style", "text-align", "text-decoration", "vertical-align",
		"width", "height", "margin", "padding", "float", "clear", "white-space",
	).Globally()

	return p
}
