package editor

import (
	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/dragdrop"
)

// GeometryPayload is the measured geometry one pointer event ships with a
// hover or drop request. The browser measures; the server decides.
//
// HitPath addresses the element under the pointer as a child-index path
// from the editor root, counting element children only, so it survives
// whitespace differences between the client's DOM and the server tree.
// Blocks carries the on-screen boxes of the editor's top-level blocks by
// position.
type GeometryPayload struct {
	Point dragdrop.Point `json:"point"`

	HitPath []int                 `json:"hit_path"`
	Blocks  map[int]dragdrop.Rect `json:"blocks"`

	OverEditor    bool `json:"over_editor"`
	OverPicker    bool `json:"over_picker"`
	OverReference bool `json:"over_reference"`
}

// clientGeometry adapts one request's measurements to the drag engine's
// Geometry capability.
type clientGeometry struct {
	session *Session
	payload GeometryPayload

	blockIndex map[*html.Node]int
}

func (s *Session) geometry(payload GeometryPayload) *clientGeometry {
	index := make(map[*html.Node]int)
	for i, b := range s.doc.TopLevelBlocks() {
		index[b] = i
	}
	return &clientGeometry{
		session:    s,
		payload:    payload,
		blockIndex: index,
	}
}

func (g *clientGeometry) HitNode(pt dragdrop.Point) *html.Node {
	if g.payload.HitPath == nil {
		return nil
	}
	node := g.session.doc.Root()
	for _, idx := range g.payload.HitPath {
		var match *html.Node
		count := 0
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if count == idx {
				match = c
				break
			}
			count++
		}
		if match == nil {
			// The client's path no longer matches the tree; treat as a
			// miss rather than guessing.
			return nil
		}
		node = match
	}
	return node
}

func (g *clientGeometry) Bounds(n *html.Node) (dragdrop.Rect, bool) {
	idx, ok := g.blockIndex[n]
	if !ok {
		return dragdrop.Rect{}, false
	}
	r, ok := g.payload.Blocks[idx]
	return r, ok
}

func (g *clientGeometry) OverPicker(pt dragdrop.Point) bool {
	return g.payload.OverPicker
}

func (g *clientGeometry) OverReference(pt dragdrop.Point) bool {
	return g.payload.OverReference
}

func (g *clientGeometry) OverEditor(pt dragdrop.Point) bool {
	return g.payload.OverEditor
}
