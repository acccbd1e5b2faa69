package dragdrop

import "golang.org/x/net/html"

// Point is a pointer position in editor viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a block's bounding box as measured in the browser.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Geometry answers the spatial questions drop resolution asks. The
// browser supplies the measurements for one pointer event; tests supply
// a fake.
type Geometry interface {
	// HitNode returns the deepest document node under the pointer, or nil
	// when the pointer is over editor chrome or empty space.
	HitNode(pt Point) *html.Node
	// Bounds reports the on-screen box of a top-level block or group
	// container. ok is false when the client did not measure that block.
	Bounds(n *html.Node) (Rect, bool)
	// OverPicker reports whether the pointer is over the gallery.
	OverPicker(pt Point) bool
	// OverReference reports whether the pointer is over the reference-image
	// slot's drop zone.
	OverReference(pt Point) bool
	// OverEditor reports whether the pointer is within the editor surface.
	OverEditor(pt Point) bool
}
