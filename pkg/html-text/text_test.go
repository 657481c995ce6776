package htmltext

import (
	"errors"
	"testing"
)

func TestExtractFirstMatch(t *testing.T) {
	doc := `<html><head><title>x</title></head><body>
<p>before <code>first</code></p><code>second</code></body></html>`
	text, err := Extractor{}.Extract([]byte(doc), "body code")
	if err != nil {
		t.Fatal(err)
	}
	if text != "first" {
		t.Fatalf("Text is %q", text)
	}
}

func TestExtractNestedText(t *testing.T) {
	doc := `<body><code>text/html,<b>application/xhtml+xml</b>;q=0.9</code></body>`
	text, err := Extractor{}.Extract([]byte(doc), "body code")
	if err != nil {
		t.Fatal(err)
	}
	if text != "text/html,application/xhtml+xml;q=0.9" {
		t.Fatalf("Text is %q", text)
	}
}

func TestExtractUnescapesEntities(t *testing.T) {
	doc := `<body><code>a &amp; b &lt;c&gt;</code></body>`
	text, err := Extractor{}.Extract([]byte(doc), "body code")
	if err != nil || text != "a & b <c>" {
		t.Fatalf("Text is %q (%v)", text, err)
	}
}

func TestExtractIgnoresCodeOutsideBody(t *testing.T) {
	// the parser moves stray elements into body, so use a script text node
	doc := `<html><head><script>var s = "<code>no</code>";</script></head><body><p>none</p></body></html>`
	_, err := Extractor{}.Extract([]byte(doc), "body code")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Expected ErrNoMatch, got %v", err)
	}
}

func TestExtractInvalidSelector(t *testing.T) {
	if _, err := (Extractor{}).Extract([]byte("<body></body>"), "  "); err == nil {
		t.Fatal("Expected error for empty selector")
	}
	if _, err := (Extractor{}).Extract([]byte("<body></body>"), "body frobnicate"); err == nil {
		t.Fatal("Expected error for unknown element")
	}
}
