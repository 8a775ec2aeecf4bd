package wikitext

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// urlSchemes are the prefixes that start an external link.
var urlSchemes = []string{"http://", "https://", "ftp://", "ftps://", "mailto:", "news:", "irc://", "//"}

// imageNamespaces are the link prefixes embedding an image.
var imageNamespaces = map[string]bool{
	"image": true,
	"file":  true,
	"datei": true,
	"bild":  true,
}

// schemeLength returns the length of the URL scheme at the start of s, or 0.
func schemeLength(s string) int {
	for _, scheme := range urlSchemes {
		if len(s) > len(scheme) && strings.EqualFold(s[:len(scheme)], scheme) {
			return len(scheme)
		}
	}
	return 0
}

// urlEnd returns the end of the URL starting at s[i].
func urlEnd(s string, i int) int {
	j := i
	for j < len(s) {
		c := s[j]
		if c <= ' ' || strings.IndexByte(`<>"[]{}|'`, c) >= 0 || strings.HasPrefix(s[j:], placeholderMark) {
			break
		}
		j++
	}
	return j
}

// hrefAttr prepares a URL for an attribute value. Spaces are percent-encoded,
// URLs containing them do not survive sanitizing. A relative URL whose first
// segment has a colon, like "Category:Places", would be read as a scheme and
// gets a "./" prefix.
func hrefAttr(u string) string {
	u = strings.ReplaceAll(strings.TrimSpace(u), " ", "%20")
	if colon := strings.IndexByte(u, ':'); colon > 0 && schemeLength(u) == 0 &&
		!strings.ContainsAny(u[:colon], "/?#") {
		u = "./" + u
	}
	return escapeHTML(u)
}

// splitNamespace splits "Namespace:Title".
func splitNamespace(target string) (string, string) {
	colon := strings.IndexByte(target, ':')
	if colon < 0 {
		return "", target
	}
	return strings.TrimSpace(target[:colon]), strings.TrimSpace(target[colon+1:])
}

// splitLinkParts splits the inside of [[...]] at the pipes not nested in other links.
func splitLinkParts(inner string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch {
		case strings.HasPrefix(inner[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(inner[i:], "]]") && depth > 0:
			depth--
			i++
		case inner[i] == '|' && depth == 0:
			parts = append(parts, inner[start:i])
			start = i + 1
		}
	}
	return append(parts, inner[start:])
}

// linkBrackets pairs the "[[" and "]]" of s and maps the offset of each opener to
// the offset of its closer. A run of '[' opens from the right, so in "[[[a]]" the
// link starts at the second bracket. A run of ']' closes from the left.
func linkBrackets(s string) map[int]int {
	var pairs map[int]int
	var stack []int
	for i := 0; i < len(s); {
		switch s[i] {
		case '[':
			n := runLength(s, i, '[')
			for j := i + n%2; j+1 < i+n; j += 2 {
				stack = append(stack, j)
			}
			i += n
		case ']':
			n := runLength(s, i, ']')
			for j := i; j+1 < i+n && len(stack) > 0; j += 2 {
				if pairs == nil {
					pairs = make(map[int]int)
				}
				pairs[stack[len(stack)-1]] = j
				stack = stack[:len(stack)-1]
			}
			i += n
		default:
			i++
		}
	}
	return pairs
}

// internalLink renders [[target]], [[target|display]] with its link trail, images
// and categories. It returns the offset after the link.
func (ir *inlineRenderer) internalLink(s string, i int) (int, bool) {
	end, ok := ir.closers[i]
	if !ok {
		return i, false
	}
	inner := s[i+2 : end]

	// The target runs up to the first pipe and holds no brackets or tags
	if k := strings.IndexAny(inner, "|<>[]{}"); k >= 0 && inner[k] != '|' {
		return i, false
	}
	parts := splitLinkParts(inner)
	target := strings.TrimSpace(parts[0])
	if target == "" {
		return i, false
	}
	next := end + 2
	st := ir.st

	if !strings.HasPrefix(target, ":") {
		ns, title := splitNamespace(target)
		switch {
		case imageNamespaces[strings.ToLower(ns)]:
			ir.br.Render(ir.image(target, title, parts[1:]))
			return next, true
		case strings.EqualFold(ns, "category"):
			st.categories = append(st.categories, st.plainSpans(title))
			return next, true
		}
	}
	target = strings.TrimSpace(strings.TrimPrefix(target, ":"))
	if target == "" {
		return i, false
	}

	display := target
	if len(parts) > 1 {
		display = strings.Join(parts[1:], "|")
	}

	// The link trail is the run of letters right after the closer
	trailEnd := next
	for trailEnd < len(s) {
		r, size := utf8.DecodeRuneInString(s[trailEnd:])
		if !unicode.IsLetter(r) {
			break
		}
		trailEnd += size
	}
	trail := s[next:trailEnd]

	plainTarget := st.plainSpans(target)
	href := st.p.resolveURL(plainTarget)
	ir.br.Render(`<a href="`, hrefAttr(href), `" title="`, escapeHTML(plainTarget), `">`,
		st.renderLinkText(display), trail, `</a>`)

	st.internalLinks = append(st.internalLinks, Link{
		Kind:   InternalLink,
		Target: plainTarget,
		Href:   href,
		Text:   st.plainText(display) + trail,
	})
	return trailEnd, true
}

// externalLink renders [url text]. Without a URL the bracket is plain text.
func (ir *inlineRenderer) externalLink(s string, i int) (int, bool) {
	n := schemeLength(s[i+1:])
	if n == 0 || urlEnd(s, i+1+n) == i+1+n {
		return i, false
	}
	closer := ir.closingBracket(s, i+1)
	if closer < 0 {
		return i, false
	}
	inner := s[i+1 : closer]

	u, text := inner, ""
	if sp := strings.IndexAny(inner, " \t"); sp >= 0 {
		u, text = inner[:sp], strings.TrimSpace(inner[sp+1:])
	}
	ir.renderExternal(u, text)
	return closer + 1, true
}

// closingBracket returns the offset of the first ']' of s at or after from, or -1.
// Offsets only grow while a line is rendered, so the last answer is reused.
func (ir *inlineRenderer) closingBracket(s string, from int) int {
	if ir.nextClose < from {
		ir.nextClose = len(s)
		if k := strings.IndexByte(s[from:], ']'); k >= 0 {
			ir.nextClose = from + k
		}
	}
	if ir.nextClose == len(s) {
		return -1
	}
	return ir.nextClose
}

// bareURL renders a URL written without brackets. Trailing punctuation is not
// part of the URL.
func (ir *inlineRenderer) bareURL(s string, i int) (int, bool) {
	n := schemeLength(s[i:])
	if n == 0 || strings.HasPrefix(s[i:], "//") {
		return i, false
	}
	end := urlEnd(s, i)
	for end > i+n && strings.IndexByte(".,;:!?)", s[end-1]) >= 0 {
		end--
	}
	if end <= i+n {
		return i, false
	}
	ir.renderExternal(s[i:end], "")
	return end, true
}

func (ir *inlineRenderer) renderExternal(u, text string) {
	st := ir.st
	u = st.plainSpans(u)
	html := escapeHTML(u)
	if text != "" {
		html = st.renderLinkText(text)
	}
	ir.br.Render(st.p.externalLink(u, html))

	plain := u
	if text != "" {
		plain = st.plainText(text)
	}
	st.externalLinks = append(st.externalLinks, Link{Kind: ExternalLink, Target: u, Href: u, Text: plain})
}

// imageOptions are the parameters of an image link.
type imageOptions struct {
	thumb     bool
	frameless bool
	border    bool
	align     string
	width     int
	height    int
	link      string
	hasLink   bool
	alt       string
	caption   string
}

// parseImageOptions classifies the parameters of an image link. The last
// parameter not recognised is the caption. Malformed values are ignored.
func parseImageOptions(params []string) imageOptions {
	var opts imageOptions
	for _, raw := range params {
		p := strings.TrimSpace(raw)
		lp := strings.ToLower(p)
		switch {
		case lp == "thumb" || lp == "thumbnail" || lp == "frame" || lp == "framed" || lp == "miniatur" || lp == "mini":
			opts.thumb = true
		case lp == "frameless":
			opts.frameless = true
		case lp == "border":
			opts.border = true
		case lp == "left" || lp == "right" || lp == "center" || lp == "none":
			opts.align = lp
		case lp == "upright" || strings.HasPrefix(lp, "upright=") || strings.HasPrefix(lp, "upright "):
		case strings.HasSuffix(lp, "px") && isImageSize(lp[:len(lp)-2]):
			opts.width, opts.height = parseImageSize(lp[:len(lp)-2])
		case strings.HasPrefix(lp, "link="):
			opts.link, opts.hasLink = strings.TrimSpace(p[len("link="):]), true
		case strings.HasPrefix(lp, "alt="):
			opts.alt = strings.TrimSpace(p[len("alt="):])
		case strings.HasPrefix(lp, "page="), strings.HasPrefix(lp, "class="), strings.HasPrefix(lp, "lang="),
			strings.HasPrefix(lp, "thumbtime="), strings.HasPrefix(lp, "start="), strings.HasPrefix(lp, "end="):
		case lp == "baseline" || lp == "sub" || lp == "super" || lp == "top" || lp == "text-top" ||
			lp == "middle" || lp == "bottom" || lp == "text-bottom":
		default:
			opts.caption = p
		}
	}
	return opts
}

func isImageSize(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) && s[i] != 'x' {
			return false
		}
	}
	return strings.Count(s, "x") <= 1
}

// parseImageSize reads "W", "xH" or "WxH".
func parseImageSize(s string) (int, int) {
	w, h, _ := strings.Cut(s, "x")
	width, _ := strconv.Atoi(w)
	height, _ := strconv.Atoi(h)
	return width, height
}

// image renders an image link. Thumbnails get a frame with the caption below.
func (ir *inlineRenderer) image(target, file string, params []string) string {
	st := ir.st
	opts := parseImageOptions(params)

	target = st.plainSpans(target)
	src := st.p.resolveURL(target)
	caption := st.plainText(opts.caption)
	st.internalLinks = append(st.internalLinks, Link{Kind: ImageLink, Target: target, Href: src, Text: caption})

	captionHTML := ""
	if opts.caption != "" {
		captionHTML = st.renderInline(opts.caption)
	}
	alt := opts.alt
	if alt == "" {
		alt = caption
	}
	if alt == "" {
		alt = file
	}

	var br ByteRenderer
	br.Render(`<img src="`, hrefAttr(src), `" alt="`, escapeHTML(alt), `"`)
	if opts.width > 0 {
		br.Render(` width="`, opts.width, `"`)
	}
	if opts.height > 0 {
		br.Render(` height="`, opts.height, `"`)
	}
	if opts.border {
		br.Render(` class="thumbborder"`)
	}
	br.Render(">")
	img := br.String()

	href := src
	if opts.hasLink {
		href = ""
		if opts.link != "" {
			if schemeLength(opts.link) > 0 {
				href = opts.link
			} else {
				href = st.p.resolveURL(opts.link)
			}
		}
	}
	if href != "" {
		img = `<a href="` + hrefAttr(href) + `" class="image" title="` + escapeHTML(caption) + `">` + img + `</a>`
	}

	if opts.thumb {
		align := opts.align
		if align == "" || align == "none" {
			align = "right"
		}
		return `<div class="thumb t` + align + `"><div class="thumbinner">` + img +
			`<div class="thumbcaption">` + captionHTML + `</div></div></div>`
	}
	if opts.align != "" && opts.align != "none" {
		return `<span class="float` + opts.align + `">` + img + `</span>`
	}
	return img
}
