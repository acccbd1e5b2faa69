package document

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/model"
)

// Typed accessors. All structural questions the editor asks of the tree go
// through these so the traversal contracts live in one place.

func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

func IsTextBlock(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && textBlockTags[n.Data]
}

func IsParagraph(n *html.Node) bool {
	return IsElement(n, "p")
}

func IsWrapper(n *html.Node) bool {
	return IsElement(n, "span") && HasClass(n, ClassWrapper)
}

func IsGroup(n *html.Node) bool {
	return IsElement(n, "div") && HasClass(n, ClassGroup)
}

func WrapperID(n *html.Node) model.ImageID {
	return model.ImageID(GetAttr(n, AttrImageID))
}

func WrapperLayout(n *html.Node) Layout {
	if HasClass(n, ClassFullWidth) {
		return LayoutFullWidth
	}
	return LayoutFloatRight
}

// SetWrapperLayout swaps the layout class. A no-op when the wrapper already
// carries the requested layout, so reorders that keep the layout untouched
// leave the class attribute byte-identical.
func SetWrapperLayout(n *html.Node, l Layout) {
	if WrapperLayout(n) == l {
		return
	}
	RemoveClass(n, ClassFloat)
	RemoveClass(n, ClassFullWidth)
	AddClass(n, layoutClass(l))
}

// TopLevelBlocks returns the element children of the root in order: text
// blocks, bare full-width wrappers, and group containers.
func (d *Document) TopLevelBlocks() []*html.Node {
	var blocks []*html.Node
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			blocks = append(blocks, c)
		}
	}
	return blocks
}

// Wrappers returns every image wrapper in document order.
func (d *Document) Wrappers() []*html.Node {
	var wrappers []*html.Node
	Walk(d.root, func(n *html.Node) {
		if IsWrapper(n) {
			wrappers = append(wrappers, n)
		}
	})
	return wrappers
}

func (d *Document) WrapperByID(id model.ImageID) *html.Node {
	for _, w := range d.Wrappers() {
		if WrapperID(w) == id {
			return w
		}
	}
	return nil
}

// Contains reports whether n is attached somewhere under the document root.
func (d *Document) Contains(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// ClosestTextBlock walks from n toward the root and returns the first
// enclosing text block, or nil when n sits outside every text block. The
// root itself is never returned.
func (d *Document) ClosestTextBlock(n *html.Node) *html.Node {
	for ; n != nil && n != d.root; n = n.Parent {
		if IsTextBlock(n) {
			return n
		}
	}
	return nil
}

// ClosestWrapper walks from n toward the root and returns the first
// enclosing image wrapper, or nil.
func (d *Document) ClosestWrapper(n *html.Node) *html.Node {
	for ; n != nil && n != d.root; n = n.Parent {
		if IsWrapper(n) {
			return n
		}
	}
	return nil
}

// FloatWrappers returns the float-right wrappers that are direct children
// of the given paragraph, in DOM order.
func FloatWrappers(p *html.Node) []*html.Node {
	var wrappers []*html.Node
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if IsWrapper(c) && WrapperLayout(c) == LayoutFloatRight {
			wrappers = append(wrappers, c)
		}
	}
	return wrappers
}

// TextContent concatenates the text nodes under n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	Walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

// Detach removes n from its parent. Safe on already-detached nodes.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertAfter places n immediately after ref under parent. A nil ref
// appends at the end.
func InsertAfter(parent, n, ref *html.Node) {
	if ref == nil || ref.NextSibling == nil {
		parent.AppendChild(n)
		return
	}
	parent.InsertBefore(n, ref.NextSibling)
}

// Attribute and class helpers.

func GetAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func HasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(GetAttr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	current := GetAttr(n, "class")
	if current == "" {
		SetAttr(n, "class", class)
		return
	}
	SetAttr(n, "class", current+" "+class)
}

func RemoveClass(n *html.Node, class string) {
	current := GetAttr(n, "class")
	if current == "" {
		return
	}
	fields := strings.Fields(current)
	kept := fields[:0]
	for _, f := range fields {
		if f != class {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}
