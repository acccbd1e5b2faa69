package document

import "golang.org/x/net/html"

// Transient decoration vocabulary. This registry is closed and explicit:
// Serialize strips exactly what is listed here, so any new editor-only
// decoration must be added to these tables or it will leak into storage.
const (
	ClassDeleteAffordance = "image-delete"
	ClassInsertMarker     = "insert-marker"

	ClassDropTarget = "drop-target"
	ClassDropBefore = "drop-before"
	ClassDropAfter  = "drop-after"
	ClassDragging   = "dragging"
	ClassDragSource = "drag-source"
	ClassSelected   = "selected"

	AttrDragCount = "data-drag-count"
)

var transientClasses = []string{
	ClassDropTarget,
	ClassDropBefore,
	ClassDropAfter,
	ClassDragging,
	ClassDragSource,
	ClassSelected,
}

var transientAttrs = []string{
	"draggable",
	"contenteditable",
	AttrDragCount,
}

// IsTransientElement reports whether the node is an editor-only element
// that must never be stored.
func IsTransientElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "button":
		return HasClass(n, ClassDeleteAffordance)
	case "span":
		return HasClass(n, ClassInsertMarker)
	}
	return false
}

func scrubTransient(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if IsTransientElement(c) {
			n.RemoveChild(c)
		} else {
			scrubTransient(c)
		}
		c = next
	}

	if n.Type == html.ElementNode {
		for _, class := range transientClasses {
			RemoveClass(n, class)
		}
		for _, attr := range transientAttrs {
			RemoveAttr(n, attr)
		}
	}
}

// dissolveDerived unwraps top-level group containers and drops float markers
// so the serialized form is the flat persistent block sequence. Layout
// normalization rebuilds both on load.
func dissolveDerived(root *html.Node) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if IsGroup(c) {
			for gc := c.FirstChild; gc != nil; {
				gnext := gc.NextSibling
				c.RemoveChild(gc)
				root.InsertBefore(gc, c)
				gc = gnext
			}
			root.RemoveChild(c)
		}
		c = next
	}

	Walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode {
			RemoveClass(n, ClassHasFloat)
		}
	})
}
