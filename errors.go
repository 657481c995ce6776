package varyprobe

import "fmt"

// NetworkError means the probe request could not be completed.
// The remaining probes of a run are not sent.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError means the response body did not have the shape of an echo
// response for the media type that was sent.
type DecodeError struct {
	MediaType  string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response to %q (status %d): %v", e.MediaType, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
