// Package document implements the entry content model over an HTML node
// tree: parsing, typed traversal helpers, and the clean-serialization
// contract that keeps editor-only decorations out of stored markup.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the in-memory tree for one entry's content. The root is a
// container element whose children are the entry's top-level blocks.
type Document struct {
	root *html.Node
}

func fragmentContext() *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
}

// Parse builds a Document from stored or client-submitted markup.
func Parse(markup string) (*Document, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext())
	if err != nil {
		return nil, fmt.Errorf("error parsing entry markup: %w", err)
	}

	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	d := &Document{root: root}
	d.EnsureNotEmpty()
	return d, nil
}

func (d *Document) Root() *html.Node {
	return d.root
}

// EnsureNotEmpty restores the single-empty-paragraph representation when no
// block children are left. An entry is never stored with zero blocks.
func (d *Document) EnsureNotEmpty() {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return
		}
	}
	for c := d.root.FirstChild; c != nil; {
		next := c.NextSibling
		d.root.RemoveChild(c)
		c = next
	}
	d.root.AppendChild(NewParagraph())
}

// Serialize renders the persistent form of the document. It works on a deep
// copy: every registered transient marker is stripped, derived structure
// (group containers, float markers) is dissolved, and the remaining blocks
// are rendered in order. The live tree is never mutated, and output is
// stable under parse/serialize round trips.
func (d *Document) Serialize() string {
	clone := CloneNode(d.root)
	scrubTransient(clone)
	dissolveDerived(clone)

	var buf bytes.Buffer
	for c := clone.FirstChild; c != nil; c = c.NextSibling {
		// Rendering into a bytes.Buffer cannot fail.
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// HTML renders the live tree as-is, decorations included. Editor fragment
// swaps use this; storage always goes through Serialize.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// CloneNode deep-copies a node and its subtree. The copy is detached.
func CloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		clone.Attr = make([]html.Attribute, len(n.Attr))
		copy(clone.Attr, n.Attr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(CloneNode(c))
	}
	return clone
}

// Walk visits n and every descendant in document order.
func Walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}
