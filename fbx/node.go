// Package fbx reads and writes FBX documents as trees of generic nodes.
//
// Trees use the node type of github.com/mogaika/fbx so that trees built
// with the bfbx73 builders and trees read from disk are interchangeable.
package fbx

import (
	"strings"

	mfbx "github.com/mogaika/fbx"
)

type Node = mfbx.Node

// File is a parsed or built FBX document.
type File struct {
	Version uint32
	Binary  bool
	FBX     *mfbx.FBX
}

func (f *File) Root() *Node {
	return &f.FBX.Root
}

// NewNode creates a node for record types that have no bfbx73 builder.
func NewNode(name string, props ...interface{}) *Node {
	n := &Node{Name: name}
	n.Properties = append(n.Properties, props...)
	return n
}

// Child returns the first child called name or nil.
func Child(n *Node, name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func Children(n *Node, name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Nodes {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Path follows a chain of child names, e.g. Path(root, "FBXHeaderExtension", "FBXVersion").
func Path(n *Node, names ...string) *Node {
	for _, name := range names {
		n = Child(n, name)
	}
	return n
}

const nameSeparator = "\x00\x01"

// JoinName builds a binary object name: "name\x00\x01Class".
func JoinName(name, class string) string {
	return name + nameSeparator + class
}

// SplitName accepts both the binary "name\x00\x01Class" and the ascii
// "Class::name" object name forms.
func SplitName(raw string) (name, class string) {
	if i := strings.Index(raw, nameSeparator); i >= 0 {
		return raw[:i], raw[i+len(nameSeparator):]
	}
	if i := strings.Index(raw, "::"); i >= 0 {
		return raw[i+2:], raw[:i]
	}
	return raw, ""
}

// asciiName converts a binary object name to its ascii spelling.
func asciiName(raw string) string {
	if !strings.Contains(raw, nameSeparator) {
		return raw
	}
	name, class := SplitName(raw)
	return class + "::" + name
}
