package wikitext

import (
	"strconv"
	"strings"
)

// argument is a template argument. Its value is expanded lazily, in the frame
// of the caller, and at most once.
type argument struct {
	nodes []*braceNode
	frame *frame
	trim  bool

	value string
	done  bool
}

// frame is the parameter set in effect while expanding a template body.
type frame struct {
	title      string
	named      map[string]*argument
	positional []*argument
	parent     *frame
}

// lookup finds a parameter by name. Named arguments take precedence over
// positional ones with the same number.
func (f *frame) lookup(name string) (*argument, bool) {
	if f == nil {
		return nil, false
	}
	if a, ok := f.named[name]; ok {
		return a, true
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= len(f.positional) {
		return f.positional[n-1], true
	}
	return nil, false
}

// topFrame holds the document parameters.
func (st *renderState) topFrame() *frame {
	f := &frame{named: make(map[string]*argument, len(st.p.params))}
	for k, v := range st.p.params {
		f.named[k] = &argument{value: v, done: true}
	}
	return f
}

// newFrame builds the frame of a template call from its argument parts.
// Names of named arguments are expanded right away, in the caller frame.
func (st *renderState) newFrame(title string, parts [][]*braceNode, caller *frame) *frame {
	f := &frame{title: title, named: map[string]*argument{}, parent: caller}
	for _, part := range parts {
		name, value, ok := splitNamedArg(part)
		if !ok {
			f.positional = append(f.positional, &argument{nodes: part, frame: caller})
			continue
		}
		key := strings.TrimSpace(st.expandNodes(name, caller))
		f.named[key] = &argument{nodes: value, frame: caller, trim: true}
	}
	return f
}

func (st *renderState) argValue(a *argument) string {
	if !a.done {
		a.value = st.expandNodes(a.nodes, a.frame)
		if a.trim {
			a.value = strings.TrimSpace(a.value)
		}
		a.done = true
	}
	return a.value
}

// expandParam resolves a {{{name|default}}} reference in frame fr. A reference
// without a value and without a default produces nothing.
func (st *renderState) expandParam(n *braceNode, fr *frame) string {
	name := strings.TrimSpace(st.expandNodes(n.parts[0], fr))
	if a, ok := fr.lookup(name); ok {
		return st.argValue(a)
	}
	if len(n.parts) > 1 {
		return st.expandNodes(n.parts[1], fr)
	}
	return ""
}
