package wikitext

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// parserFunc identifies a built-in function called as {{#name:first|args}}.
type parserFunc int

const (
	pfIf parserFunc = iota + 1
	pfIfEq
	pfIfError
	pfSwitch
	pfLc
	pfUc
	pfLcFirst
	pfUcFirst
	pfURLEncode
)

var parserFuncNames = map[string]parserFunc{
	"#if":       pfIf,
	"#ifeq":     pfIfEq,
	"#iferror":  pfIfError,
	"#switch":   pfSwitch,
	"lc":        pfLc,
	"uc":        pfUc,
	"lcfirst":   pfLcFirst,
	"ucfirst":   pfUcFirst,
	"urlencode": pfURLEncode,
}

// A parserFuncHandler receives the expanded first argument and the unexpanded
// remaining ones, so branches not taken are never expanded.
type parserFuncHandler func(st *renderState, fr *frame, first string, args [][]*braceNode) string

var parserFuncTable map[parserFunc]parserFuncHandler

func init() {
	parserFuncTable = map[parserFunc]parserFuncHandler{
		pfIf:      pfIfHandler,
		pfIfEq:    pfIfEqHandler,
		pfIfError: pfIfErrorHandler,
		pfSwitch:  pfSwitchHandler,
		pfLc: func(st *renderState, fr *frame, first string, args [][]*braceNode) string {
			return cases.Lower(language.Und).String(strings.TrimSpace(first))
		},
		pfUc: func(st *renderState, fr *frame, first string, args [][]*braceNode) string {
			return cases.Upper(language.Und).String(strings.TrimSpace(first))
		},
		pfLcFirst: func(st *renderState, fr *frame, first string, args [][]*braceNode) string {
			return mapFirstRune(strings.TrimSpace(first), cases.Lower(language.Und))
		},
		pfUcFirst: func(st *renderState, fr *frame, first string, args [][]*braceNode) string {
			return mapFirstRune(strings.TrimSpace(first), cases.Upper(language.Und))
		},
		pfURLEncode: func(st *renderState, fr *frame, first string, args [][]*braceNode) string {
			return url.QueryEscape(strings.TrimSpace(first))
		},
	}
}

// lookupParserFunc splits head at its first colon and reports whether the
// prefix names a parser function.
func lookupParserFunc(head string) (parserFunc, string, bool) {
	colon := strings.IndexByte(head, ':')
	if colon < 0 {
		return 0, "", false
	}
	fn, ok := parserFuncNames[strings.ToLower(strings.TrimSpace(head[:colon]))]
	if !ok {
		return 0, "", false
	}
	return fn, head[colon+1:], true
}

func (st *renderState) callParserFunc(fn parserFunc, first string, args [][]*braceNode, fr *frame) string {
	handler, ok := parserFuncTable[fn]
	if !ok {
		return ""
	}
	return handler(st, fr, first, args)
}

// arg expands the i-th argument, trimmed. Missing arguments are empty.
func (st *renderState) arg(args [][]*braceNode, i int, fr *frame) string {
	if i >= len(args) {
		return ""
	}
	return strings.TrimSpace(st.expandNodes(args[i], fr))
}

func pfIfHandler(st *renderState, fr *frame, first string, args [][]*braceNode) string {
	if strings.TrimSpace(first) != "" {
		return st.arg(args, 0, fr)
	}
	return st.arg(args, 1, fr)
}

func pfIfEqHandler(st *renderState, fr *frame, first string, args [][]*braceNode) string {
	if sameValue(strings.TrimSpace(first), st.arg(args, 0, fr)) {
		return st.arg(args, 1, fr)
	}
	return st.arg(args, 2, fr)
}

// pfIfErrorHandler selects the error branch when the tested text carries an
// expansion failure or an error element. Without an ok branch the tested text
// itself is returned.
func pfIfErrorHandler(st *renderState, fr *frame, first string, args [][]*braceNode) string {
	if hasSentinel(first) || strings.Contains(first, `class="error"`) {
		return st.arg(args, 0, fr)
	}
	if len(args) > 1 {
		return st.arg(args, 1, fr)
	}
	return strings.TrimSpace(first)
}

// pfSwitchHandler implements {{#switch:value|case=result|case1|case2=shared|#default=x|fallback}}.
// Cases without a value fall through to the next case with one. A final bare
// argument is the default.
func pfSwitchHandler(st *renderState, fr *frame, first string, args [][]*braceNode) string {
	value := strings.TrimSpace(first)
	matched := false
	var fallback []*braceNode
	hasFallback := false

	for i, part := range args {
		name, result, named := splitNamedArg(part)
		if !named {
			key := strings.TrimSpace(st.expandNodes(part, fr))
			if i == len(args)-1 {
				return key
			}
			if sameValue(key, value) {
				matched = true
			}
			continue
		}
		key := strings.TrimSpace(st.expandNodes(name, fr))
		if matched || sameValue(key, value) {
			return strings.TrimSpace(st.expandNodes(result, fr))
		}
		if key == "#default" {
			fallback, hasFallback = result, true
		}
	}
	if hasFallback {
		return strings.TrimSpace(st.expandNodes(fallback, fr))
	}
	return ""
}

// sameValue compares two values numerically when both are numbers.
func sameValue(a, b string) bool {
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}

func mapFirstRune(s string, c cases.Caser) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return c.String(s[:size]) + s[size:]
}
