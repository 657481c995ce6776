package rfc9111

import (
	"net/http"
	"testing"
)

func TestVaryFields(t *testing.T) {
	res := &http.Response{Header: make(http.Header)}
	res.Header.Add("Vary", "accept, Accept-Encoding")
	res.Header.Add("Vary", "ACCEPT")
	fields := VaryFields(res)
	if len(fields) != 2 || fields[0] != "Accept" || fields[1] != "Accept-Encoding" {
		t.Fatalf("Vary fields are %v", fields)
	}
}

func TestVariesOn(t *testing.T) {
	res := &http.Response{Header: make(http.Header)}
	if VariesOn(res, "Accept") {
		t.Fatal("Response without Vary should not vary")
	}
	res.Header.Set("Vary", "accept")
	if !VariesOn(res, "Accept") {
		t.Fatal("Response should vary on Accept")
	}
	res.Header.Set("Vary", "*")
	if !VariesOn(res, "Accept") {
		t.Fatal("Vary: * should vary on everything")
	}
}

func TestSelectingHeaderNormalizesWhitespace(t *testing.T) {
	a, _ := http.NewRequest("GET", "/", nil)
	a.Header.Set("Accept", "application/hal+json, application/json;q=0.9")
	b, _ := http.NewRequest("GET", "/", nil)
	b.Header.Add("Accept", "application/hal+json")
	b.Header.Add("Accept", "application/json;q=0.9")
	if SelectingHeader(a, "Accept") != SelectingHeader(b, "Accept") {
		t.Fatalf("%q != %q", SelectingHeader(a, "Accept"), SelectingHeader(b, "Accept"))
	}
}

func TestFieldAbsent(t *testing.T) {
	h := http.Header{}
	if !FieldAbsent(h, "accept") {
		t.Fatal("Field should be absent")
	}
	h["Accept"] = []string{""}
	if FieldAbsent(h, "accept") {
		t.Fatal("Empty field is present")
	}
}
