package render

import (
	"strings"
	"testing"

	"github.com/daybookhq/daybook/internal/util"
)

func TestRenderEntryHighlightsCodeBlocks(t *testing.T) {
	body := []byte(`<p>Some notes</p><pre><code class="language-go">package main</code></pre>`)

	rendered, err := RenderEntry(body, "gruvbox")
	if err != nil {
		t.Fatalf("Failed to render entry: %v", err)
	}

	out := string(rendered)
	if !strings.Contains(out, `class="highlight"`) {
		t.Errorf("Expected a highlight wrapper in output, got %s", out)
	}
	if strings.Contains(out, "<pre><code") {
		t.Errorf("Expected the raw pre block to be replaced, got %s", out)
	}
	if !strings.Contains(out, "chroma") {
		t.Errorf("Expected chroma classes in output, got %s", out)
	}
}

func TestRenderEntryRebuildsGrouping(t *testing.T) {
	body := []byte(`<p>intro</p>` +
		`<span class="entry-image layout-full-width" data-image-id="a"><img src="/a.jpg" alt=""/></span>` +
		`<span class="entry-image layout-full-width" data-image-id="b"><img src="/b.jpg" alt=""/></span>`)

	rendered, err := RenderEntry(body, "gruvbox")
	if err != nil {
		t.Fatalf("Failed to render entry: %v", err)
	}

	if !strings.Contains(string(rendered), `class="image-group"`) {
		t.Errorf("Expected adjacent full-width wrappers to be grouped in read view, got %s", rendered)
	}
}

func TestRenderEntryMarksFloatParagraphs(t *testing.T) {
	body := []byte(`<p><span class="entry-image layout-float-right" data-image-id="a"><img src="/a.jpg" alt=""/></span>text</p>`)

	rendered, err := RenderEntry(body, "gruvbox")
	if err != nil {
		t.Fatalf("Failed to render entry: %v", err)
	}

	if !strings.Contains(string(rendered), "has-float") {
		t.Errorf("Expected the paragraph to carry the float marker, got %s", rendered)
	}
}

func TestRenderEntryCached(t *testing.T) {
	body := []byte(`<p>cache me</p>`)
	hash := util.ContentHash(body)

	first, err := RenderEntryCached(body, hash, "gruvbox")
	if err != nil {
		t.Fatalf("Failed to render entry: %v", err)
	}
	second, err := RenderEntryCached(body, hash, "gruvbox")
	if err != nil {
		t.Fatalf("Failed to render cached entry: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("Expected cached render to match, got %q vs %q", first, second)
	}
}

func TestHighlightCodeFallsBackOnUnknownLanguage(t *testing.T) {
	out := HighlightCode("plain text", "no-such-language", "gruvbox")
	if !strings.Contains(out, "plain text") {
		t.Errorf("Expected source text to survive highlighting, got %q", out)
	}
}
