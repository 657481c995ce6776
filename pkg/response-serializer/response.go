package serializer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	responseTimeHeaderName = "Probe-Response-Time"
	requestTimeHeaderName  = "Probe-Request-Time"
)

// TimedResponse is a probe response as it was received, together with the
// request that produced it and the clock values around the exchange.
type TimedResponse struct {
	// Response with Request set. Its Body is not read; Body holds the bytes instead.
	Response *http.Response
	Body     []byte
	// The value of the clock at the time the request was sent.
	RequestTime time.Time
	// The value of the clock at the time the response was received.
	ResponseTime time.Time
}

func BytesToStoredResponse(b []byte) (TimedResponse, error) {
	sRes := TimedResponse{}
	res, err := bytesToResponse(b)
	if err != nil {
		return sRes, err
	}
	sRes.Response = res
	resTimeInt, err := strconv.ParseInt(res.Header.Get(responseTimeHeaderName), 10, 64)
	if err != nil {
		return sRes, err
	}
	reqTimeInt, err := strconv.ParseInt(res.Header.Get(requestTimeHeaderName), 10, 64)
	if err != nil {
		return sRes, err
	}
	sRes.ResponseTime = time.UnixMilli(resTimeInt)
	sRes.RequestTime = time.UnixMilli(reqTimeInt)
	// delete extra headers
	sRes.Response.Header.Del(responseTimeHeaderName)
	sRes.Response.Header.Del(requestTimeHeaderName)
	if res.Body != nil {
		sRes.Body, err = io.ReadAll(res.Body)
		res.Body.Close()
		res.Body = io.NopCloser(bytes.NewReader(sRes.Body))
	}
	return sRes, err
}

var delim = []byte("\r\n\r\n----\r\n\r\n")

func StoredResponseToBytes(sRes TimedResponse) ([]byte, error) {
	if sRes.Response == nil {
		return nil, fmt.Errorf("response not set")
	}
	req := sRes.Response.Request
	buf := &bytes.Buffer{}

	if req != nil {
		err := req.Write(buf)
		if err != nil {
			log.Warn().Err(err).Msg("Could not write request to bytes")
		}
	} else {
		log.Warn().Msg("Request not set")
	}
	buf.Write(delim)

	// write a copy so the caller's response is left untouched
	res := *sRes.Response
	res.Header = sRes.Response.Header.Clone()
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	res.Header.Set(responseTimeHeaderName, strconv.FormatInt(sRes.ResponseTime.UnixMilli(), 10))
	res.Header.Set(requestTimeHeaderName, strconv.FormatInt(sRes.RequestTime.UnixMilli(), 10))
	bts, err := responseToBytes(&res, sRes.Body)
	buf.Write(bts)

	return buf.Bytes(), err
}

// bytesToResponse converts a byte slice to a http.Response.
func bytesToResponse(b []byte) (*http.Response, error) {
	bParts := bytes.SplitN(b, delim, 2)
	if len(bParts) != 2 {
		return nil, fmt.Errorf("stored response is missing the request delimiter")
	}
	reqBytes := bParts[0]
	resBytes := bParts[1]
	var req *http.Request
	if len(reqBytes) > 0 {
		var err error
		req, err = http.ReadRequest(bufio.NewReader(bytes.NewReader(reqBytes)))
		if err != nil {
			log.Warn().Err(err).Bytes("bytes", reqBytes).Msg("Could not read request from stored response")
		}
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(resBytes)), req)
}

// responseToBytes converts a response to a byte slice.
// It returns the HTTP/1.1 representation of the response with the given body.
func responseToBytes(res *http.Response, body []byte) ([]byte, error) {
	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	res.TransferEncoding = nil
	res.Header.Del("Content-Length")
	res.Header.Del("Transfer-Encoding")
	if res.ProtoMajor == 0 {
		res.ProtoMajor, res.ProtoMinor = 1, 1
	}
	buf := &bytes.Buffer{}
	err := res.Write(buf)
	return buf.Bytes(), err
}
