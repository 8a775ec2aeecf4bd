package wikitext

import "strconv"

// A NodeType is the type of a Node.
type NodeType uint32

const (
	DocumentNode NodeType = iota + 1
	ListNode
	ItemNode
)

// String returns a string representation of the NodeType.
func (n NodeType) String() string {
	switch n {
	case DocumentNode:
		return "Document Node"
	case ListNode:
		return "List Node"
	case ItemNode:
		return "Item Node"
	}
	return "Invalid Node (" + strconv.Itoa(int(n)) + ")"
}

// Node is an element of the block tree built for nested structures (lists and
// the table of contents). Content holds the already rendered inline HTML of an item.
type Node struct {
	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node

	Type    NodeType
	Name    string
	Class   string
	Content string
}

// AppendChild adds a node child as a child of parent.
//
// It will panic if child already has a parent or siblings.
func (parent *Node) AppendChild(child *Node) {
	if child.Parent != nil || child.PrevSibling != nil || child.NextSibling != nil {
		panic("AppendChild called for an already attached child Node")
	}
	last := parent.LastChild
	if last != nil {
		// If the parent has already childs, set the new node as next sibling of the current last child
		last.NextSibling = child
	} else {
		// If the parent has no childs, set the new node as the first child
		parent.FirstChild = child
	}

	// In any case, the new node will be the last child of the parent
	parent.LastChild = child

	child.Parent = parent
	child.PrevSibling = last
}

// NewChild creates a node of the given type and name and appends it to n.
func (n *Node) NewChild(typ NodeType, name string) *Node {
	child := &Node{Type: typ, Name: name}
	n.AppendChild(child)
	return child
}

// RenderHTML renders recursively to HTML this node and its children (if any)
func (n *Node) RenderHTML(br *ByteRenderer) {
	switch n.Type {

	case DocumentNode:
		// Every top level block starts on its own line
		for theNode := n.FirstChild; theNode != nil; theNode = theNode.NextSibling {
			br.Render("\n")
			theNode.RenderHTML(br)
		}

	case ListNode, ItemNode:
		br.Render("<", n.Name)
		if len(n.Class) > 0 {
			br.Render(` class="`, n.Class, `"`)
		}
		br.Render(">", n.Content)
		for theNode := n.FirstChild; theNode != nil; theNode = theNode.NextSibling {
			theNode.RenderHTML(br)
		}
		br.Render("</", n.Name, ">")

	}
}
