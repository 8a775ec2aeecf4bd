package wikitext

import "strings"

// braceKind is the type of a node in the brace tree.
type braceKind int

const (
	textBrace braceKind = iota
	templateBrace
	paramBrace
	linkBrace
)

// braceNode is a node of the tree built from template calls, parameter
// references and internal links. Parts are separated by top level pipes.
type braceNode struct {
	kind  braceKind
	text  string
	parts [][]*braceNode
}

func textNode(s string) *braceNode {
	return &braceNode{kind: textBrace, text: s}
}

// openElem is an opening run of braces or a link opener waiting for its closer.
type openElem struct {
	open  byte
	count int
	parts [][]*braceNode
}

type braceParser struct {
	root  []*braceNode
	stack []*openElem
	buf   strings.Builder
}

// target returns the node list receiving output at this point of the parse.
func (bp *braceParser) target() *[]*braceNode {
	if n := len(bp.stack); n > 0 {
		e := bp.stack[n-1]
		return &e.parts[len(e.parts)-1]
	}
	return &bp.root
}

func (bp *braceParser) flush() {
	if bp.buf.Len() == 0 {
		return
	}
	t := bp.target()
	*t = append(*t, textNode(bp.buf.String()))
	bp.buf.Reset()
}

func (bp *braceParser) emit(n *braceNode) {
	bp.flush()
	t := bp.target()
	*t = append(*t, n)
}

func (bp *braceParser) top() *openElem {
	if n := len(bp.stack); n > 0 {
		return bp.stack[n-1]
	}
	return nil
}

func (bp *braceParser) push(open byte, count int) {
	bp.flush()
	bp.stack = append(bp.stack, &openElem{open: open, count: count, parts: [][]*braceNode{nil}})
}

func (bp *braceParser) pop() *openElem {
	e := bp.stack[len(bp.stack)-1]
	bp.stack = bp.stack[:len(bp.stack)-1]
	return e
}

// parseBraces builds the brace tree of s.
//
// A closing run is matched against the innermost opening run: three braces form a
// parameter reference, two a template call. Leftover opening braces (two or more)
// enclose the closed element as the first node of a new element, so "{{{{{a}}|b}}}"
// is a parameter whose name is the template call {{a}}. Elements never closed are
// returned as literal text.
func parseBraces(s string) []*braceNode {
	bp := &braceParser{}

	for i := 0; i < len(s); {
		c := s[i]
		top := bp.top()

		switch {
		case c == '{':
			n := runLength(s, i, '{')
			if n < 2 {
				bp.buf.WriteByte(c)
				i++
				continue
			}
			bp.push('{', n)
			i += n

		case c == '[' && strings.HasPrefix(s[i:], "[["):
			bp.push('[', 2)
			i += 2

		case c == ']' && top != nil && top.open == '[' && strings.HasPrefix(s[i:], "]]"):
			bp.flush()
			e := bp.pop()
			bp.emit(&braceNode{kind: linkBrace, parts: e.parts})
			i += 2

		case c == '}' && top != nil && top.open == '{':
			m := runLength(s, i, '}')
			if m < 2 {
				bp.buf.WriteByte(c)
				i++
				continue
			}
			matched := min(top.count, m, 3)
			kind := templateBrace
			if matched == 3 {
				kind = paramBrace
			}
			bp.flush()
			node := &braceNode{kind: kind, parts: top.parts}
			top.count -= matched
			i += matched

			if top.count >= 2 {
				top.parts = [][]*braceNode{{node}}
				continue
			}
			bp.pop()
			if top.count == 1 {
				bp.buf.WriteByte('{')
			}
			bp.emit(node)

		case c == '|' && top != nil:
			bp.flush()
			top.parts = append(top.parts, nil)
			i++

		default:
			bp.buf.WriteByte(c)
			i++
		}
	}

	// Unclosed elements are literal text
	for len(bp.stack) > 0 {
		bp.flush()
		e := bp.pop()
		bp.buf.WriteString(strings.Repeat(string(e.open), e.count))
		for j, part := range e.parts {
			if j > 0 {
				bp.buf.WriteByte('|')
			}
			for _, n := range part {
				if n.kind == textBrace {
					bp.buf.WriteString(n.text)
					continue
				}
				bp.emit(n)
			}
		}
	}
	bp.flush()

	return bp.root
}

// splitNamedArg splits a part at the first '=' found in its top level text,
// returning the name and value nodes.
func splitNamedArg(part []*braceNode) (name, value []*braceNode, ok bool) {
	for i, n := range part {
		if n.kind != textBrace {
			continue
		}
		eq := strings.IndexByte(n.text, '=')
		if eq < 0 {
			continue
		}
		name = append(name, part[:i]...)
		if eq > 0 {
			name = append(name, textNode(n.text[:eq]))
		}
		if eq+1 < len(n.text) {
			value = append(value, textNode(n.text[eq+1:]))
		}
		value = append(value, part[i+1:]...)
		return name, value, true
	}
	return nil, part, false
}
