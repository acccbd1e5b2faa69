// Package render produces the read-view HTML for stored entries: derived
// layout structure is rebuilt and code blocks are syntax highlighted.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/daybookhq/daybook/internal/cache"
	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/layout"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

// RenderEntry turns stored entry markup into read-view HTML. The stored
// form is the flat persistent block sequence; grouping and float markers
// are derived here, the same way the editor derives them, and pre blocks
// are replaced with highlighted markup.
func RenderEntry(body []byte, highlightTheme string) ([]byte, error) {
	doc, err := document.Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing entry body: %w", err)
	}

	// Read views get grouping and float markers but no editing
	// affordances.
	layout.RegroupFullWidth(doc)
	layout.MarkFloatParagraphs(doc)

	highlightCodeBlocks(doc, highlightTheme)

	return []byte(doc.HTML()), nil
}

// highlightCodeBlocks swaps each pre block for chroma-highlighted markup.
// The replacement is a raw node so the generated spans render verbatim.
func highlightCodeBlocks(doc *document.Document, highlightTheme string) {
	var pres []*html.Node
	document.Walk(doc.Root(), func(n *html.Node) {
		if document.IsElement(n, "pre") {
			pres = append(pres, n)
		}
	})

	for _, pre := range pres {
		code := document.TextContent(pre)
		highlighted := HighlightCode(code, codeLanguage(pre), highlightTheme)

		raw := &html.Node{
			Type: html.RawNode,
			Data: `<div class="highlight">` + highlighted + `</div>`,
		}
		pre.Parent.InsertBefore(raw, pre)
		pre.Parent.RemoveChild(pre)
	}
}

// codeLanguage reads the language hint from the pre block or its inner
// code element, in the language-xxx class convention.
func codeLanguage(pre *html.Node) string {
	if lang := languageClass(pre); lang != "" {
		return lang
	}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if document.IsElement(c, "code") {
			return languageClass(c)
		}
	}
	return ""
}

func languageClass(n *html.Node) string {
	for _, f := range strings.Fields(document.GetAttr(n, "class")) {
		if lang, ok := strings.CutPrefix(f, "language-"); ok {
			return lang
		}
	}
	return ""
}

// Mutex to protect the check-render-set operation in RenderEntryCached
var renderCacheMutex sync.Mutex

// RenderEntryCached renders through the body-hash keyed cache so a page
// reload does not re-highlight unchanged entries.
func RenderEntryCached(body []byte, bodyHash, highlightTheme string) ([]byte, error) {
	if bodyHash == "" {
		renderLogger.Warn().Msg("Body hash is empty, skipping cache check")
		return RenderEntry(body, highlightTheme)
	}

	// First check cache without locking (fast path for cache hits)
	if cached, found := cache.GetRenderedEntry(bodyHash, highlightTheme); found {
		renderLogger.Debug().Str("bodyHash", bodyHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered entry")
		return cached, nil
	}

	renderLogger.Debug().Str("bodyHash", bodyHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered entry")
	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	rendered, err := RenderEntry(body, highlightTheme)
	if err != nil {
		return nil, err
	}
	cache.SetRenderedEntry(bodyHash, highlightTheme, rendered)

	return rendered, nil
}
