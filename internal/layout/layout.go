// Package layout keeps derived structure in step with the persistent
// wrapper sequence: full-width grouping, float markers on paragraphs, and
// the per-wrapper delete affordance. Everything here is recomputed from
// the tree, so running it twice is the same as running it once.
package layout

import (
	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/document"
)

// MaxFloatsPerParagraph caps how many float-right wrappers one paragraph
// may hold once an edit settles.
const MaxFloatsPerParagraph = 2

// Normalize re-derives all decoration from the persistent content. It runs
// after every structural change.
func Normalize(d *document.Document) {
	d.EnsureNotEmpty()
	EnsureDeleteAffordances(d)
	RegroupFullWidth(d)
	MarkFloatParagraphs(d)
}

// EnsureDeleteAffordances appends the remove button to every wrapper that
// does not already carry one.
func EnsureDeleteAffordances(d *document.Document) {
	for _, w := range d.Wrappers() {
		if !hasDeleteAffordance(w) {
			w.AppendChild(document.NewDeleteAffordance())
		}
	}
}

func hasDeleteAffordance(w *html.Node) bool {
	for c := w.FirstChild; c != nil; c = c.NextSibling {
		if document.IsElement(c, "button") && document.HasClass(c, document.ClassDeleteAffordance) {
			return true
		}
	}
	return false
}

// RegroupFullWidth rebuilds the group containers around runs of consecutive
// top-level full-width wrappers. Existing containers are dissolved first so
// the result depends only on the wrapper sequence. Lone full-width wrappers
// stay bare; a container appears once a run reaches two.
func RegroupFullWidth(d *document.Document) {
	root := d.Root()

	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if document.IsGroup(c) {
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

	c := root.FirstChild
	for c != nil {
		if !isTopLevelFullWidth(c) {
			c = c.NextSibling
			continue
		}
		runEnd := c
		runLen := 1
		for isTopLevelFullWidth(runEnd.NextSibling) {
			runEnd = runEnd.NextSibling
			runLen++
		}
		next := runEnd.NextSibling
		if runLen >= 2 {
			group := document.NewGroup()
			root.InsertBefore(group, c)
			for w := c; ; {
				wnext := w.NextSibling
				root.RemoveChild(w)
				group.AppendChild(w)
				if w == runEnd {
					break
				}
				w = wnext
			}
		}
		c = next
	}
}

func isTopLevelFullWidth(n *html.Node) bool {
	return document.IsWrapper(n) && document.WrapperLayout(n) == document.LayoutFullWidth
}

// MarkFloatParagraphs sets or clears the float marker class on every
// paragraph according to whether it currently holds a float wrapper.
func MarkFloatParagraphs(d *document.Document) {
	document.Walk(d.Root(), func(n *html.Node) {
		if !document.IsParagraph(n) {
			return
		}
		if len(document.FloatWrappers(n)) > 0 {
			document.AddClass(n, document.ClassHasFloat)
		} else {
			document.RemoveClass(n, document.ClassHasFloat)
		}
	})
}

// InsertFloat prepends w to paragraph p as a float-right wrapper.
// Prepending keeps the floated image level with the top of the paragraph
// text, so repeated inserts read in reverse payload order.
func InsertFloat(p, w *html.Node) {
	document.SetWrapperLayout(w, document.LayoutFloatRight)
	p.InsertBefore(w, p.FirstChild)
}

// InsertFullWidthAfter places w immediately after ref, joining ref's
// parent so chained inserts land inside an existing group container.
func InsertFullWidthAfter(w, ref *html.Node) {
	document.SetWrapperLayout(w, document.LayoutFullWidth)
	document.InsertAfter(ref.Parent, w, ref)
}

// InsertFullWidthBefore places w immediately before ref at ref's level.
func InsertFullWidthBefore(w, ref *html.Node) {
	document.SetWrapperLayout(w, document.LayoutFullWidth)
	ref.Parent.InsertBefore(w, ref)
}

// AppendFullWidth places w after the document's last top-level block.
func AppendFullWidth(d *document.Document, w *html.Node) {
	document.SetWrapperLayout(w, document.LayoutFullWidth)
	d.Root().AppendChild(w)
}

// EnforceFloatLimit detaches float wrappers from p, last by DOM position
// first, until the paragraph is back under the cap. It runs after a whole
// drop has been applied, so a multi-item insert may exceed the cap
// mid-operation without triggering it early. The evicted wrappers are
// returned in eviction order; the newly dropped image can be among them.
func EnforceFloatLimit(p *html.Node) []*html.Node {
	var evicted []*html.Node
	for {
		floats := document.FloatWrappers(p)
		if len(floats) <= MaxFloatsPerParagraph {
			return evicted
		}
		last := floats[len(floats)-1]
		document.Detach(last)
		evicted = append(evicted, last)
	}
}
