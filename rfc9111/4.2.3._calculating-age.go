package rfc9111

import (
	"net/http"
	"time"
)

// §  4.2.3.  Calculating Age
// §
// §     The term "date_value" denotes the value of the Date header field, in
// §     a form appropriate for arithmetic operations.
func date_value(res *http.Response) (time.Time, bool) {
	if dateHeader := res.Header.Get("Date"); dateHeader != "" {
		if date, err := HttpDate(dateHeader); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// §       apparent_age = max(0, response_time - date_value);
func apparentAge(res *http.Response, response_time time.Time) time.Duration {
	date, ok := date_value(res)
	if !ok {
		return 0
	}
	return durationMax(0, response_time.Sub(date))
}

func durationMax(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
