package serializer

import (
	"bufio"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestResponseToBytesKeepsBody(t *testing.T) {
	response := "HTTP/1.1 200 OK\r\nServer: Test\r\nContent-Length: 16\r\n\r\nThis is the body"

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}

	bts, err := responseToBytes(res, []byte("This is the body"))
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if !strings.HasSuffix(string(bts), "\r\n\r\nThis is the body") {
		t.Fatalf("Bytes: %s", bts)
	}
}

func TestTimedResponseSerialization(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://localhost:8880/echo-accept-header-w-vary", nil)
	req.Header.Set("Accept", "application/json")
	res := http.Response{
		StatusCode: 200,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     map[string][]string{},
		Request:    req,
	}
	res.Header.Add("Vary", "Accept")
	res.Header.Add("Age", "12")
	// create times now and now + 1s
	reqTime := time.Now().Truncate(time.Millisecond)
	resTime := reqTime.Add(time.Second)
	bts, err := StoredResponseToBytes(TimedResponse{
		Response:     &res,
		Body:         []byte(`{"accept":"application/json"}`),
		ResponseTime: resTime,
		RequestTime:  reqTime,
	})
	if err != nil {
		t.Fatalf("Error creating bytes: %+v", err)
	}
	if res.Header.Get(responseTimeHeaderName) != "" {
		t.Fatalf("Original response was modified: %+v", res.Header)
	}
	// deserialize
	res2, err := BytesToStoredResponse(bts)
	if err != nil {
		t.Fatalf("Error creating response: %+v", err)
	}
	if res2.Response.Header.Get("Vary") != "Accept" || res2.Response.Header.Get("Age") != "12" {
		t.Fatalf("Headers wrong %+v", res2.Response.Header)
	}
	if res2.Response.Header.Get(responseTimeHeaderName) != "" || res2.Response.Header.Get(requestTimeHeaderName) != "" {
		t.Fatalf("Wrong amount of headers %+v", res2.Response.Header)
	}
	if !res2.RequestTime.Equal(reqTime) || !res2.ResponseTime.Equal(resTime) {
		t.Fatalf("Times wrong: %v %v", res2.RequestTime, res2.ResponseTime)
	}
	if string(res2.Body) != `{"accept":"application/json"}` {
		t.Fatalf("Body wrong: %s", res2.Body)
	}
	if res2.Response.Request == nil || res2.Response.Request.Header.Get("Accept") != "application/json" {
		t.Fatalf("Request wrong: %+v", res2.Response.Request)
	}
	body, _ := io.ReadAll(res2.Response.Body)
	if string(body) != string(res2.Body) {
		t.Fatalf("Response body not readable: %s", body)
	}
}

func TestBytesWithoutDelimiter(t *testing.T) {
	if _, err := BytesToStoredResponse([]byte("HTTP/1.1 200 OK\r\n\r\n")); err == nil {
		t.Fatal("Expected error for missing delimiter")
	}
}
