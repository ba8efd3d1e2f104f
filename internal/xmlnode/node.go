// Package xmlnode decodes an XML document into a small element tree that can
// be searched by namespace URI and local name.
package xmlnode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is one XML element. Space holds the resolved namespace URI, not the
// prefix used in the document.
type Node struct {
	Space    string
	Local    string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// ErrEmptyDocument is returned when the input has no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// Parse decodes the document in data and returns its root element.
func Parse(data []byte) (*Node, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads an XML document from r and returns its root element.
func Decode(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Space: t.Name.Space, Local: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.Attrs = append(n.Attrs, a)
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("decode xml: unexpected end element %s", t.Name.Local)
			}
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// Is reports whether n has the given namespace URI and local name.
func (n *Node) Is(space, local string) bool {
	return n.Space == space && n.Local == local
}

// Attr returns the value of the attribute with the given local name,
// ignoring its namespace.
func (n *Node) Attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first descendant of n (document order, n excluded) that
// satisfies match, or nil.
func (n *Node) Find(match func(*Node) bool) *Node {
	for _, c := range n.Children {
		if match(c) {
			return c
		}
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant of n (document order, n excluded) that
// satisfies match.
func (n *Node) FindAll(match func(*Node) bool) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if match(c) {
			out = append(out, c)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}

// Named matches elements with the given namespace URI and local name.
func Named(space, local string) func(*Node) bool {
	return func(n *Node) bool {
		return n.Is(space, local)
	}
}

// NamedWithAttr matches elements with the given name whose attribute attr
// equals value.
func NamedWithAttr(space, local, attr, value string) func(*Node) bool {
	return func(n *Node) bool {
		if !n.Is(space, local) {
			return false
		}
		v, ok := n.Attr(attr)
		return ok && v == value
	}
}
