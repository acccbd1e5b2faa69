package document

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/daybookhq/daybook/internal/model"
)

// Node constructors for the markup vocabulary.

func NewParagraph() *html.Node {
	p := &html.Node{Type: html.ElementNode, DataAtom: atom.P, Data: "p"}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: ""})
	return p
}

// NewWrapper builds a persistent image wrapper:
//
//	<span class="entry-image layout-float-right" data-image-id="...">
//	  <img src="..." alt="..."/>
//	  <span class="image-caption">...</span>
//	</span>
//
// The caption span is omitted when the image has no caption.
func NewWrapper(img model.Image, layout Layout) *html.Node {
	w := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
	SetAttr(w, "class", ClassWrapper+" "+layoutClass(layout))
	SetAttr(w, AttrImageID, string(img.ID))

	el := &html.Node{Type: html.ElementNode, DataAtom: atom.Img, Data: "img"}
	SetAttr(el, "src", img.SourceURL)
	SetAttr(el, "alt", img.AltText)
	w.AppendChild(el)

	if img.Caption != "" {
		cap := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
		SetAttr(cap, "class", ClassCaption)
		cap.AppendChild(&html.Node{Type: html.TextNode, Data: img.Caption})
		w.AppendChild(cap)
	}
	return w
}

// NewGroup builds the derived container that holds a run of consecutive
// full-width wrappers. Groups never survive serialization.
func NewGroup() *html.Node {
	g := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	SetAttr(g, "class", ClassGroup)
	return g
}

// NewDeleteAffordance builds the per-wrapper remove button shown while
// editing. It is transient markup and is stripped on serialize.
func NewDeleteAffordance() *html.Node {
	btn := &html.Node{Type: html.ElementNode, DataAtom: atom.Button, Data: "button"}
	SetAttr(btn, "class", ClassDeleteAffordance)
	SetAttr(btn, "type", "button")
	SetAttr(btn, "aria-label", "Remove image")
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: "×"})
	return btn
}

// NewInsertMarker builds the transient drop-position indicator. A span so
// it can sit between float wrappers inside a paragraph.
func NewInsertMarker() *html.Node {
	m := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
	SetAttr(m, "class", ClassInsertMarker)
	return m
}
