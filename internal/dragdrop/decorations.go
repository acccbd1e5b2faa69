package dragdrop

import (
	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/document"
)

// Hover feedback. Everything added here is registered transient markup,
// cleared on drop, cancel, and blur.

// UpdateHover repaints the drop indication for the current pointer
// position. It never mutates document structure, only decoration classes.
func (e *Engine) UpdateHover(geom Geometry, pt Point) {
	st := e.state
	if st == nil {
		return
	}
	e.clearDecorations()
	if st.Moving != nil {
		e.decorate(st.Moving, document.ClassDragging)
	}

	target := e.resolveTarget(st, geom, pt)
	switch target.kind {
	case targetFloat:
		e.decorate(target.block, document.ClassDropTarget)
	case targetAfterWrapper, targetAfterLast:
		e.decorate(target.block, document.ClassDropAfter)
	case targetBeforeBlock:
		e.decorate(target.block, document.ClassDropBefore)
	}
}

// ReferenceHighlight reports whether the reference drop zone should light
// up for the active drag. Only a single-image picker drag can land there,
// and the slot itself keeps a veto.
func (e *Engine) ReferenceHighlight() bool {
	return e.state != nil &&
		e.state.Source == SourcePicker &&
		e.state.Count() == 1 &&
		e.ref.ShouldHighlight()
}

func (e *Engine) decorate(n *html.Node, class string) {
	document.AddClass(n, class)
	e.decorated = append(e.decorated, n)
}

func (e *Engine) clearDecorations() {
	for _, n := range e.decorated {
		document.RemoveClass(n, document.ClassDropTarget)
		document.RemoveClass(n, document.ClassDropBefore)
		document.RemoveClass(n, document.ClassDropAfter)
		document.RemoveClass(n, document.ClassDragging)
	}
	e.decorated = nil
}
