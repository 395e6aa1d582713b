// Package xmldoc parses XML records into a small namespace-aware element tree.
//
// The tree keeps only what the extractors need: resolved element names,
// attributes, children in document order and the character data that precedes
// the first child element.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"
)

// XMLNamespace is the namespace bound to the reserved xml: prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// Node is one element of a parsed document.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node
	Parent   *Node

	text bytes.Buffer
}

// SyntaxError reports a document that is not well-formed.
type SyntaxError struct {
	Path string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	location := e.Path
	if location == "" {
		location = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("xml syntax error in %s (line %d): %s", location, e.Line, e.Msg)
	}
	return fmt.Sprintf("xml syntax error in %s: %s", location, e.Msg)
}

// Parse reads a whole document and returns its root element.
// Documents declaring a non-UTF-8 encoding are transcoded on the fly.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			var serr *xml.SyntaxError
			if errors.As(err, &serr) {
				return nil, &SyntaxError{Line: serr.Line, Msg: serr.Msg}
			}
			return nil, &SyntaxError{Msg: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, &SyntaxError{Msg: "multiple root elements"}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 {
				cur.text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, &SyntaxError{Msg: "no root element"}
	}
	return root, nil
}

// ParseFile opens and parses the document at path.
func ParseFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := Parse(f)
	if err != nil {
		var serr *SyntaxError
		if errors.As(err, &serr) {
			serr.Path = path
		}
		return nil, err
	}
	return root, nil
}

// Text returns the character data that precedes the node's first child element.
func (n *Node) Text() string {
	return n.text.String()
}

// HasText reports whether the node carries any leading character data.
func (n *Node) HasText() bool {
	return n.text.Len() > 0
}

// Attr returns the value of the attribute with the given namespace and local name.
func (n *Node) Attr(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Descendants returns every descendant named name, in document order.
// The node itself is never included.
func (n *Node) Descendants(name xml.Name) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.Name == name {
			out = append(out, c)
		}
	})
	return out
}

// Find returns the first descendant named name, or nil.
func (n *Node) Find(name xml.Name) *Node {
	return n.FindWhere(name, nil)
}

// FindWhere returns the first descendant named name for which match returns true.
// A nil match accepts every node.
func (n *Node) FindWhere(name xml.Name, match func(*Node) bool) *Node {
	for _, c := range n.Children {
		if c.Name == name && (match == nil || match(c)) {
			return c
		}
		if found := c.FindWhere(name, match); found != nil {
			return found
		}
	}
	return nil
}

// DescendantsWithin returns, in document order, every descendant named name
// that has an ancestor named container below n. Each node is returned once even
// when containers nest.
func (n *Node) DescendantsWithin(container, name xml.Name) []*Node {
	var out []*Node
	var visit func(c *Node, inside bool)
	visit = func(c *Node, inside bool) {
		if inside && c.Name == name {
			out = append(out, c)
		}
		inner := inside || c.Name == container
		for _, gc := range c.Children {
			visit(gc, inner)
		}
	}
	for _, c := range n.Children {
		visit(c, false)
	}
	return out
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}
