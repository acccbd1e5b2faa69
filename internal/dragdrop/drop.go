package dragdrop

import (
	"math"

	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/layout"
	"github.com/daybookhq/daybook/internal/model"
)

type targetKind int

const (
	targetNone targetKind = iota
	targetFloat
	targetAfterWrapper
	targetBeforeBlock
	targetAfterLast
	targetPickerRemove
	targetSetReference
)

type dropTarget struct {
	kind  targetKind
	block *html.Node
}

// DropResult reports what one drop changed, in image ids. Eviction can
// remove an image the same drop inserted, in which case its id appears in
// both Inserted and Evicted.
type DropResult struct {
	Source    Source
	Inserted  []model.ImageID // new wrappers added from the picker or reference slot
	Moved     model.ImageID   // wrapper relocated within the editor
	Evicted   []model.ImageID // wrappers removed by the per-paragraph float cap
	Removed   []model.ImageID // wrappers or slot cleared by dropping on the picker
	Reference model.ImageID   // image placed into the reference slot
	Cancelled bool
}

func (r DropResult) Changed() bool {
	return len(r.Inserted) > 0 || len(r.Removed) > 0 || len(r.Evicted) > 0 ||
		r.Moved != "" || r.Reference != ""
}

// Drop finishes the active drag at the given pointer position. Whatever
// the outcome, the engine returns to idle and no decoration survives.
func (e *Engine) Drop(geom Geometry, pt Point) DropResult {
	st := e.state
	if st == nil {
		return DropResult{Cancelled: true}
	}
	defer e.reset()

	target := e.resolveTarget(st, geom, pt)

	switch target.kind {
	case targetNone:
		dragdropLogger.Debug().Str("source", st.Source.String()).Msg("Drop outside any target, treated as cancel")
		return DropResult{Source: st.Source, Cancelled: true}
	case targetPickerRemove:
		return e.applyRemoval(st)
	case targetSetReference:
		return e.applySetReference(st)
	}
	return e.applyInsertion(st, target)
}

// resolveTarget turns a pointer position into a drop target, applying the
// precedence rules: text block beats full-width wrapper beats the
// nearest-top-edge fallback; the picker is a removal surface for editor
// and reference drags only.
func (e *Engine) resolveTarget(st *State, geom Geometry, pt Point) dropTarget {
	if geom.OverPicker(pt) {
		if st.Source == SourceEditor || st.Source == SourceReference {
			return dropTarget{kind: targetPickerRemove}
		}
		return dropTarget{kind: targetNone}
	}
	if geom.OverReference(pt) {
		// Only a single picker image can become the reference.
		if st.Source == SourcePicker && len(st.Payload) == 1 {
			return dropTarget{kind: targetSetReference}
		}
		return dropTarget{kind: targetNone}
	}
	if !geom.OverEditor(pt) {
		return dropTarget{kind: targetNone}
	}

	if hit := geom.HitNode(pt); hit != nil {
		if block := e.doc.ClosestTextBlock(hit); block != nil {
			return dropTarget{kind: targetFloat, block: block}
		}
		if w := e.doc.ClosestWrapper(hit); w != nil && document.WrapperLayout(w) == document.LayoutFullWidth {
			return dropTarget{kind: targetAfterWrapper, block: w}
		}
	}

	blocks := e.doc.TopLevelBlocks()
	if len(blocks) == 0 {
		return dropTarget{kind: targetNone}
	}

	if last := blocks[len(blocks)-1]; pastBottom(geom, last, pt) {
		return dropTarget{kind: targetAfterLast, block: last}
	}

	var best *html.Node
	bestDist := math.MaxFloat64
	for _, b := range blocks {
		r, ok := geom.Bounds(b)
		if !ok {
			continue
		}
		if d := math.Abs(r.Top - pt.Y); d < bestDist {
			best, bestDist = b, d
		}
	}
	if best == nil {
		return dropTarget{kind: targetNone}
	}
	return dropTarget{kind: targetBeforeBlock, block: best}
}

func pastBottom(geom Geometry, last *html.Node, pt Point) bool {
	r, ok := geom.Bounds(last)
	return ok && pt.Y > r.Bottom
}

func (e *Engine) applyRemoval(st *State) DropResult {
	switch st.Source {
	case SourceEditor:
		id := document.WrapperID(st.Moving)
		document.Detach(st.Moving)
		layout.Normalize(e.doc)
		e.notifyContentChanged()
		dragdropLogger.Debug().Str("image", string(id)).Msg("Wrapper removed via picker drop")
		return DropResult{Source: st.Source, Removed: []model.ImageID{id}}
	case SourceReference:
		id := e.ref.Current()
		e.ref.Clear()
		e.notifyContentChanged()
		dragdropLogger.Debug().Str("image", string(id)).Msg("Reference slot cleared via picker drop")
		return DropResult{Source: st.Source, Removed: []model.ImageID{id}}
	}
	return DropResult{Source: st.Source, Cancelled: true}
}

func (e *Engine) applySetReference(st *State) DropResult {
	img := st.Payload[0]
	e.ref.Set(img.ID)
	e.notifyContentChanged()
	dragdropLogger.Debug().Str("image", string(img.ID)).Msg("Reference image set via drop")
	return DropResult{Source: st.Source, Reference: img.ID}
}

func (e *Engine) applyInsertion(st *State, target dropTarget) DropResult {
	if st.Source == SourceEditor {
		return e.applyMove(st, target)
	}
	if len(st.Payload) == 0 {
		return DropResult{Source: st.Source, Cancelled: true}
	}

	wrappers := make([]*html.Node, 0, len(st.Payload))
	ids := make([]model.ImageID, 0, len(st.Payload))
	for _, img := range st.Payload {
		wrappers = append(wrappers, document.NewWrapper(img, document.LayoutFloatRight))
		ids = append(ids, img.ID)
	}

	evicted := e.place(target, wrappers)
	layout.Normalize(e.doc)

	if st.Source == SourcePicker && len(st.Payload) > 1 {
		e.picker.ClearSelection()
	}
	if st.Source == SourceReference {
		// Inserting the reference image moves it into the content.
		e.ref.Clear()
	}
	e.notifyContentChanged()

	result := DropResult{Source: st.Source, Inserted: ids, Evicted: nodeIDs(evicted)}
	dragdropLogger.Debug().
		Str("source", st.Source.String()).
		Int("inserted", len(result.Inserted)).
		Int("evicted", len(result.Evicted)).
		Msg("Drop applied")
	return result
}

func (e *Engine) applyMove(st *State, target dropTarget) DropResult {
	moving := st.Moving
	if isInside(target.block, moving) {
		// Dropping a wrapper onto itself moves nothing.
		return DropResult{Source: st.Source, Cancelled: true}
	}

	// Detach before reinserting so the old position never participates in
	// the eviction count for the target paragraph.
	document.Detach(moving)
	evicted := e.place(target, []*html.Node{moving})
	layout.Normalize(e.doc)
	e.notifyContentChanged()

	result := DropResult{Source: st.Source, Moved: document.WrapperID(moving), Evicted: nodeIDs(evicted)}
	dragdropLogger.Debug().
		Str("image", string(result.Moved)).
		Int("evicted", len(result.Evicted)).
		Msg("Wrapper reordered")
	return result
}

// place applies the resolved target to the given detached wrappers in
// payload order and returns whatever the float cap evicted.
func (e *Engine) place(target dropTarget, wrappers []*html.Node) []*html.Node {
	switch target.kind {
	case targetFloat:
		for _, w := range wrappers {
			layout.InsertFloat(target.block, w)
		}
		if document.IsParagraph(target.block) {
			return layout.EnforceFloatLimit(target.block)
		}
	case targetAfterWrapper, targetAfterLast:
		ref := target.block
		for _, w := range wrappers {
			layout.InsertFullWidthAfter(w, ref)
			ref = w
		}
	case targetBeforeBlock:
		layout.InsertFullWidthBefore(wrappers[0], target.block)
		ref := wrappers[0]
		for _, w := range wrappers[1:] {
			layout.InsertFullWidthAfter(w, ref)
			ref = w
		}
	}
	return nil
}

func (e *Engine) notifyContentChanged() {
	if e.onContentChanged != nil {
		e.onContentChanged()
	}
}

func nodeIDs(nodes []*html.Node) []model.ImageID {
	var ids []model.ImageID
	for _, n := range nodes {
		ids = append(ids, document.WrapperID(n))
	}
	return ids
}

func isInside(n, ancestor *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}
