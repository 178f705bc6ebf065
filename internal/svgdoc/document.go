// Package svgdoc wraps an etree document with the small surface the map
// card needs: parse a map once, deep-copy it per render, query and edit
// attributes and class lists, and serialise the result.
package svgdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// Attr is a single attribute. Name keeps any namespace prefix verbatim
// (e.g. "xlink:href").
type Attr struct {
	Name  string
	Value string
}

// Node is an element of a Document. Nodes returned by the same Document are
// stable: the same element always yields the same *Node.
type Node struct {
	el *etree.Element
}

// NewElement returns a detached element, useful for inspecting identifier
// and class logic without a document.
func NewElement(name string, attrs ...Attr) *Node {
	n := &Node{el: etree.NewElement(name)}
	for _, a := range attrs {
		n.SetAttr(a.Name, a.Value)
	}
	return n
}

// Document is a parsed map. Only the document element is kept; prolog
// content (XML declaration, doctype, leading comments) is dropped.
type Document struct {
	tree  *etree.Document
	root  *Node
	nodes []*Node // descendants of root in document order
}

// Parse reads an XML document and returns its element tree. Start and end
// tags must balance and there must be exactly one document element.
// General entities declared in the doctype's internal subset are expanded,
// as in Illustrator exports that bind xmlns="&ns_svg;".
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read svg: %w", err)
	}

	src := etree.NewDocument()
	src.ReadSettings.Entity = declaredEntities(data)
	if _, err := src.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	switch roots := src.ChildElements(); len(roots) {
	case 0:
		return nil, errors.New("parse svg: no document element")
	case 1:
	default:
		return nil, errors.New("parse svg: multiple document elements")
	}

	tree := etree.NewDocument()
	tree.SetRoot(src.Root())
	return newDocument(tree), nil
}

func newDocument(tree *etree.Document) *Document {
	d := &Document{tree: tree, root: &Node{el: tree.Root()}}
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			d.nodes = append(d.nodes, &Node{el: c})
			walk(c)
		}
	}
	walk(tree.Root())
	return d
}

// Root returns the document element.
func (d *Document) Root() *Node {
	return d.root
}

// Clone returns a deep copy of the document. Edits to the copy never reach
// the original.
func (d *Document) Clone() *Document {
	return newDocument(d.tree.Copy())
}

// Descendants returns every element below the root in document order. The
// root itself is not included.
func (d *Document) Descendants() []*Node {
	out := make([]*Node, len(d.nodes))
	copy(out, d.nodes)
	return out
}

// Find returns the first descendant element whose attribute name has the
// given value, or nil.
func (d *Document) Find(name, value string) *Node {
	for _, n := range d.nodes {
		if v, ok := n.Attr(name); ok && v == value {
			return n
		}
	}
	return nil
}

// Name returns the element name with its prefix, e.g. "path" or "svg:g".
func (n *Node) Name() string {
	return n.el.FullTag()
}

// LocalName returns the element name without its namespace prefix.
func (n *Node) LocalName() string {
	return n.el.Tag
}

// Attrs returns the element's attributes in document order.
func (n *Node) Attrs() []Attr {
	out := make([]Attr, 0, len(n.el.Attr))
	for i := range n.el.Attr {
		out = append(out, Attr{Name: n.el.Attr[i].FullKey(), Value: n.el.Attr[i].Value})
	}
	return out
}

// Attr returns the value of an attribute and whether it is present. The
// name is matched exactly, prefix included.
func (n *Node) Attr(name string) (string, bool) {
	if a := n.attr(name); a != nil {
		return a.Value, true
	}
	return "", false
}

// SetAttr sets or appends an attribute.
func (n *Node) SetAttr(name, value string) {
	if a := n.attr(name); a != nil {
		a.Value = value
		return
	}
	n.el.CreateAttr(name, value)
}

// RemoveAttr deletes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	for i := range n.el.Attr {
		if n.el.Attr[i].FullKey() == name {
			n.el.Attr = append(n.el.Attr[:i], n.el.Attr[i+1:]...)
			return
		}
	}
}

// attr looks an attribute up by its full key. etree's own SelectAttr treats
// an unprefixed key as matching any prefix, which would let "id" hit
// "inkscape:id".
func (n *Node) attr(name string) *etree.Attr {
	for i := range n.el.Attr {
		if n.el.Attr[i].FullKey() == name {
			return &n.el.Attr[i]
		}
	}
	return nil
}

// WriteTo serialises the document element to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.tree.WriteTo(w)
}

// String returns the serialised document element.
func (d *Document) String() string {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.String()
}
