package tee

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSaverRecordsStatusAndBytes(t *testing.T) {
	rr := httptest.NewRecorder()
	rs := NewResponseSaver(rr)
	rs.Header().Set("Vary", "Accept")
	rs.WriteHeader(http.StatusNotAcceptable)
	rs.WriteHeader(http.StatusOK)
	rs.Write([]byte("nope"))

	if rs.StatusCode() != http.StatusNotAcceptable || rr.Code != http.StatusNotAcceptable {
		t.Fatalf("Status is %d (recorder %d)", rs.StatusCode(), rr.Code)
	}
	if rs.BytesWritten() != 4 || rr.Body.String() != "nope" {
		t.Fatalf("Bytes written %d, body %q", rs.BytesWritten(), rr.Body.String())
	}
	if rr.Header().Get("Vary") != "Accept" {
		t.Fatalf("Header not written through: %v", rr.Header())
	}
}

func TestSaverImplicitOK(t *testing.T) {
	rr := httptest.NewRecorder()
	rs := NewResponseSaver(rr)
	if rs.StatusCode() != http.StatusOK {
		t.Fatalf("Status is %d", rs.StatusCode())
	}
	rs.Write([]byte("{}"))
	if rs.StatusCode() != http.StatusOK || rr.Code != http.StatusOK {
		t.Fatalf("Status is %d", rs.StatusCode())
	}
}
