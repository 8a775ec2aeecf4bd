package wikitext

import (
	"regexp"
	"slices"
	"strings"
)

// parsedTemplate is a template body ready for expansion.
type parsedTemplate struct {
	tree  []*braceNode
	found bool
}

// sentinelRe matches the markers left where a template could not be expanded.
var sentinelRe = regexp.MustCompile(sentinelMark + `[^` + sentinelMark + `]*` + sentinelMark)

func errorSentinel(reason, name string) string {
	return sentinelMark + reason + ":" + name + sentinelMark
}

func hasSentinel(s string) bool {
	return strings.Contains(s, sentinelMark)
}

func stripSentinels(s string) string {
	if !hasSentinel(s) {
		return s
	}
	s = sentinelRe.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, sentinelMark, "")
}

// expandText expands every template call and parameter reference in text.
func (st *renderState) expandText(text string, fr *frame) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return st.expandNodes(parseBraces(text), fr)
}

func (st *renderState) expandNodes(nodes []*braceNode, fr *frame) string {
	if len(nodes) == 1 && nodes[0].kind == textBrace {
		return nodes[0].text
	}
	var sb strings.Builder
	for _, n := range nodes {
		switch n.kind {
		case textBrace:
			sb.WriteString(n.text)
		case paramBrace:
			sb.WriteString(st.expandParam(n, fr))
		case templateBrace:
			sb.WriteString(st.expandTemplate(n, fr))
		case linkBrace:
			sb.WriteString("[[")
			for j, part := range n.parts {
				if j > 0 {
					sb.WriteByte('|')
				}
				sb.WriteString(st.expandNodes(part, fr))
			}
			sb.WriteString("]]")
		}
	}
	return sb.String()
}

// canonicalTemplateName normalises the name used to call a template.
func canonicalTemplateName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, ":")
	if len(name) > len("template:") && strings.EqualFold(name[:len("template:")], "template:") {
		name = strings.TrimSpace(name[len("template:"):])
	}
	return name
}

// expandTemplate expands a {{name|args}} call in frame fr.
func (st *renderState) expandTemplate(n *braceNode, fr *frame) string {
	head := strings.TrimSpace(st.expandNodes(n.parts[0], fr))
	if head == "" {
		return "{{" + st.expandNodes(flattenParts(n.parts), fr) + "}}"
	}

	if fn, first, ok := lookupParserFunc(head); ok {
		return st.callParserFunc(fn, first, n.parts[1:], fr)
	}

	// Document parameters and a few magic words double as variables
	if len(n.parts) == 1 {
		if v, ok := st.p.params[head]; ok {
			return v
		}
		switch head {
		case "!":
			return "|"
		case "=":
			return "="
		}
	}

	name := canonicalTemplateName(head)
	if name == "" {
		return ""
	}

	if slices.Contains(st.callStack, name) {
		st.p.log.Warnw("template loop detected", "template", name, "stack", strings.Join(st.callStack, " > "))
		st.syntaxError("Template:"+name, "", 0, "template loop detected")
		return errorSentinel("loop", name)
	}
	if len(st.callStack) >= st.p.maxDepth {
		st.p.log.Warnw("template nesting too deep", "template", name, "depth", len(st.callStack))
		st.syntaxError("Template:"+name, "", 0, "template nesting too deep")
		return errorSentinel("depth", name)
	}
	if st.expansions >= st.p.maxExpansions {
		st.p.log.Warnw("template expansion limit reached", "template", name, "limit", st.p.maxExpansions)
		st.syntaxError("Template:"+name, "", 0, "template expansion limit reached")
		return errorSentinel("limit", name)
	}
	st.expansions++

	tpl := st.template(name)
	if !tpl.found {
		return ""
	}

	callee := st.newFrame(name, n.parts[1:], fr)
	st.callStack = append(st.callStack, name)
	out := st.expandNodes(tpl.tree, callee)
	st.callStack = st.callStack[:len(st.callStack)-1]
	return out
}

// template fetches a template body through the lookup hook, once per render.
func (st *renderState) template(name string) *parsedTemplate {
	if tpl, ok := st.templates[name]; ok {
		return tpl
	}
	tpl := &parsedTemplate{}
	st.templates[name] = tpl

	body, found := st.p.lookupTemplate(name)
	if !found {
		st.p.log.Debugw("template not found", "template", name)
		return tpl
	}
	tpl.found = true

	body = normalizeNewlines(body)
	body = st.extract(body, "Template:"+name)
	body = applyInclusionMode(body, transclusion)
	tpl.tree = parseBraces(body)
	return tpl
}

// flattenParts joins the parts of a node with literal pipes.
func flattenParts(parts [][]*braceNode) []*braceNode {
	var nodes []*braceNode
	for j, part := range parts {
		if j > 0 {
			nodes = append(nodes, textNode("|"))
		}
		nodes = append(nodes, part...)
	}
	return nodes
}
