package document

// Persistent markup vocabulary. Entries are stored as a flat sequence of
// these constructs; anything else the editor renders is either derived
// (rebuilt by layout normalization) or transient (stripped by Serialize).
//
// Wrappers are span elements on purpose: float wrappers live inside
// paragraphs, and any non-phrasing tag there would be hoisted out by the
// HTML5 parser's p auto-close rule, breaking round-trip stability.
const (
	ClassWrapper   = "entry-image"
	ClassFloat     = "layout-float-right"
	ClassFullWidth = "layout-full-width"
	ClassCaption   = "image-caption"

	AttrImageID = "data-image-id"
)

// Derived markup, recomputed from the wrapper sequence on every normalize.
// Serialize dissolves it so the stored form stays flat.
const (
	ClassGroup    = "image-group"
	ClassHasFloat = "has-float"
)

type Layout string

const (
	LayoutFloatRight Layout = "float-right"
	LayoutFullWidth  Layout = "full-width"
)

func layoutClass(l Layout) string {
	if l == LayoutFullWidth {
		return ClassFullWidth
	}
	return ClassFloat
}

// textBlockTags is the whitelist of editable block constructs. The editor
// never produces anything outside this set plus wrappers and list items.
var textBlockTags = map[string]bool{
	"p":          true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"ul":         true,
	"ol":         true,
	"blockquote": true,
	"pre":        true,
}
