package varyprobe

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDecodeJSONEcho(t *testing.T) {
	d := NewDecoder(nil)
	for _, m := range []string{
		"application/json",
		"application/hal+json",
		"application/hal+json,application/json;q=0.9",
		`weird "quoted" value`,
	} {
		body := `{"accept": ` + jsonString(m) + `, "extra": 1}`
		result, err := d.Decode(response(200, body), m)
		if err != nil {
			t.Fatalf("Decode %q: %v", m, err)
		}
		if result.Accept != m {
			t.Fatalf("Decoded %q, sent %q", result.Accept, m)
		}
	}
}

func jsonString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func TestDecodeMalformedJSON(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode(response(200, "<html><body><code>text/html</code></body></html>"), "application/json")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if decodeErr.MediaType != "application/json" || decodeErr.StatusCode != 200 {
		t.Fatalf("DecodeError is %+v", decodeErr)
	}
}

func TestDecodeJSONWithoutAccept(t *testing.T) {
	d := NewDecoder(nil)
	for _, body := range []string{`{}`, `null`, `{"accept": 3}`, `["application/json"]`} {
		_, err := d.Decode(response(200, body), "application/json")
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("Expected DecodeError for %s, got %v", body, err)
		}
	}
}

func TestDecodeNotAcceptable(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode(response(http.StatusNotAcceptable, ""), "image/png")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.StatusCode != http.StatusNotAcceptable {
		t.Fatalf("Expected DecodeError with status 406, got %v", err)
	}
}

func TestDecodeHTML(t *testing.T) {
	d := NewDecoder(nil)
	body := `<!DOCTYPE html><html><head><script>console.log("<code>")</script></head>
<body><p>Your browser sent</p><code>text/html,application/xhtml+xml</code><code>later</code></body></html>`
	result, err := d.Decode(response(200, body), "text/html,application/xhtml+xml")
	if err != nil {
		t.Fatal(err)
	}
	if result.Accept != "text/html,application/xhtml+xml" {
		t.Fatalf("Decoded %q", result.Accept)
	}
}

func TestDecodeHTMLMissingElement(t *testing.T) {
	d := NewDecoder(nil)
	_, err := d.Decode(response(200, `{"accept": "text/html"}`), "text/html")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
}

type fakeExtractor struct {
	raw      string
	selector string
	text     string
}

func (f *fakeExtractor) Extract(raw []byte, selector string) (string, error) {
	f.raw, f.selector = string(raw), selector
	return f.text, nil
}

func TestDecodeHTMLUsesExtractor(t *testing.T) {
	f := &fakeExtractor{text: "  text/html  "}
	result, err := NewDecoder(f).Decode(response(200, "<doc>"), "TEXT/HTML")
	if err != nil {
		t.Fatal(err)
	}
	if f.raw != "<doc>" || f.selector != AcceptElementSelector {
		t.Fatalf("Extractor called with %q %q", f.raw, f.selector)
	}
	if result.Accept != "  text/html  " {
		t.Fatalf("Text was altered: %q", result.Accept)
	}
}

func TestIsHTML(t *testing.T) {
	if !IsHTML("text/html") || !IsHTML(DefaultPageAccept) {
		t.Fatal("HTML media types not recognized")
	}
	if IsHTML("application/json") || IsHTML("application/xhtml+xml") {
		t.Fatal("Non-HTML media type recognized as HTML")
	}
}
