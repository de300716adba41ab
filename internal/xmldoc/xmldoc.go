// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package xmldoc loads doxygen XML output into an immutable tree and exposes
// a small accessor interface over its nodes.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
)

var (
	// ErrMalformed is returned when bytes cannot be parsed as well-formed XML.
	// Doxygen leaves truncated files behind when it runs out of disk space.
	ErrMalformed = errors.New("malformed XML document")

	// ErrPrecondition marks a caller bug: a nil, empty, or otherwise
	// forbidden argument. It is never recovered.
	ErrPrecondition = errors.New("precondition violated")
)

// Document is a parsed XML tree. It is never mutated after load.
type Document struct {
	Path string // Source path, empty for in-memory documents
	root *Node
}

// Load reads and parses the XML file at path.
func Load(path string) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty document path", ErrPrecondition)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse parses an in-memory XML document.
func Parse(data []byte) (*Document, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Document, error) {
	name := path
	if name == "" {
		name = "<memory>"
	}

	// etree reads raw tokens, so tag balance is checked by a strict decoder
	// first.
	if err := CheckWellFormed(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}

	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: %s: document is empty", ErrMalformed, name)
	}
	return &Document{Path: path, root: &Node{el: root}}, nil
}

// CheckWellFormed runs a strict tokenizer over data and returns the first
// syntax error, if any. Empty input is well-formed here; callers that need a
// root element check for it separately.
func CheckWellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Root returns the document element.
func (d *Document) Root() *Node {
	return d.root
}

// Nodes returns every element named tag in document order.
func (d *Document) Nodes(tag string) []*Node {
	return d.root.Descendants(tag)
}

// Node is a read-only view of one XML element.
type Node struct {
	el *etree.Element
}

// Tag returns the element's local name.
func (n *Node) Tag() string {
	return n.el.Tag
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	a := n.el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// Text returns the character data that precedes the first child node. The
// boolean is false when the element has no leading text at all.
func (n *Node) Text() (string, bool) {
	var b strings.Builder
	for _, tok := range n.el.Child {
		cd, ok := tok.(*etree.CharData)
		if !ok {
			break
		}
		b.WriteString(cd.Data)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// Children returns the direct child elements in document order.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, c := range n.el.ChildElements() {
		out = append(out, &Node{el: c})
	}
	return out
}

// Child returns the first direct child element named tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.el.ChildElements() {
		if c.Tag == tag {
			return &Node{el: c}
		}
	}
	return nil
}

// Descendants returns n and every element below it named tag, in document
// order.
func (n *Node) Descendants(tag string) []*Node {
	var out []*Node
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == tag {
			out = append(out, &Node{el: el})
		}
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(n.el)
	return out
}

// FlatText returns all character data in the subtree with markup removed.
func (n *Node) FlatText() string {
	var b strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, tok := range el.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(n.el)
	return b.String()
}

// InnerMarkup returns the element's leading text followed by each child
// re-serialized as markup together with the text that trails it. Embedded
// wrappers such as <ref refid="..."> survive intact.
func (n *Node) InnerMarkup() string {
	var b strings.Builder
	leading := true
	for _, tok := range n.el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if leading {
				b.WriteString(t.Data)
			} else {
				b.WriteString(escapeText(t.Data))
			}
		case *etree.Element:
			leading = false
			b.WriteString(serialize(t))
		case *etree.Comment:
			leading = false
			b.WriteString("<!--" + t.Data + "-->")
		}
	}
	return b.String()
}

// Markup returns the element itself serialized as XML.
func (n *Node) Markup() string {
	return serialize(n.el)
}

func serialize(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeText escapes character data without touching whitespace, so newlines
// in initializer bodies stay line boundaries.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}
