package varyprobe

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	htmltext "github.com/ericselin/vary-probe/pkg/html-text"
)

// AcceptElementSelector locates the element holding the echoed Accept value
// in an HTML echo response.
const AcceptElementSelector = "body code"

// TextExtractor returns the text content of the first element of an HTML
// document matching selector.
type TextExtractor interface {
	Extract(raw []byte, selector string) (string, error)
}

// Decoder turns echo responses into probe results.
type Decoder struct {
	extractor TextExtractor
}

// NewDecoder creates a decoder using the given extractor for HTML responses.
// If extractor is nil, an x/net/html based extractor is used.
func NewDecoder(extractor TextExtractor) *Decoder {
	if extractor == nil {
		extractor = htmltext.Extractor{}
	}
	return &Decoder{extractor: extractor}
}

// IsHTML reports whether the media type belongs to the HTML family,
// i.e. whether the echo is expected as an HTML document.
func IsHTML(mediaType string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(mediaType)), "text/html")
}

// Decode reads the response body and extracts the echoed Accept value.
// The path is chosen by the media type that was sent, not by the response's
// Content-Type: a cache serving the wrong variant must show up as a failure.
func (d *Decoder) Decode(res *http.Response, mediaType string) (ProbeResult, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return ProbeResult{}, &DecodeError{MediaType: mediaType, StatusCode: res.StatusCode, Err: err}
	}
	return d.decodeBody(body, mediaType, res.StatusCode)
}

func (d *Decoder) decodeBody(body []byte, mediaType string, statusCode int) (ProbeResult, error) {
	var result ProbeResult
	var err error
	if IsHTML(mediaType) {
		result.Accept, err = d.extractor.Extract(body, AcceptElementSelector)
	} else {
		result, err = decodeJSON(body)
	}
	if err != nil {
		return ProbeResult{}, &DecodeError{MediaType: mediaType, StatusCode: statusCode, Err: err}
	}
	return result, nil
}

var errNoAcceptField = errors.New(`response object has no string field "accept"`)

func decodeJSON(body []byte) (ProbeResult, error) {
	var echo struct {
		Accept *string `json:"accept"`
	}
	if err := json.Unmarshal(body, &echo); err != nil {
		return ProbeResult{}, err
	}
	if echo.Accept == nil {
		return ProbeResult{}, errNoAcceptField
	}
	return ProbeResult{Accept: *echo.Accept}, nil
}
