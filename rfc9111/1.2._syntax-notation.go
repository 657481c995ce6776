package rfc9111

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// §  1.2.2.  Delta Seconds
// §
// §     The delta-seconds rule specifies a non-negative integer, representing
// §     time in seconds.
// §
// §       delta-seconds  = 1*DIGIT
// §
// §     A recipient parsing a delta-seconds value and converting it to binary
// §     form ought to use an arithmetic type of at least 31 bits of non-
// §     negative integer range.  If a cache receives a delta-seconds value
// §     greater than the greatest integer it can represent, or if any of its
// §     subsequent calculations overflows, the cache MUST consider the value
// §     to be 2147483648 (2^31) or the greatest positive integer it can
// §     conveniently represent.
func deltaSeconds(secondsStr string) (time.Duration, error) {
	seconds, err := strconv.ParseUint(strings.TrimSpace(secondsStr), 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return maxDeltaSeconds, nil
		}
		return 0, fmt.Errorf("invalid delta-seconds %q: %w", secondsStr, err)
	}
	if seconds > maxDeltaSecondsInt {
		return maxDeltaSeconds, nil
	}
	return time.Second * time.Duration(seconds), nil
}

const maxDeltaSecondsInt = 1 << 31

const maxDeltaSeconds = time.Second * maxDeltaSecondsInt

// This section is from the HTTP specification (RFC9110), not the cache specification
//
// §     HTTP-date    = IMF-fixdate / obs-date
//
// §     Recipients of timestamp values are encouraged to be robust in parsing
// §     timestamps unless otherwise restricted by the field definition.  For
// §     example, messages are occasionally forwarded over HTTP from a non-
// §     HTTP source that might generate any of the date and time
// §     specifications defined by the Internet Message Format.
func HttpDate(dateStr string) (time.Time, error) {
	if date, err := imfDate(dateStr); err == nil {
		return date, err
	} else {
		// try to parse as obsolete date
		if date, err := obsDate(dateStr); err == nil {
			return date, err
		}
		// return original error if unsuccessful
		return date, err
	}
}

// §     An example of the preferred format is
// §
// §       Sun, 06 Nov 1994 08:49:37 GMT    ; IMF-fixdate
const imfDateLayout = "Mon, 02 Jan 2006 15:04:05 MST"

func imfDate(dateStr string) (time.Time, error) {
	date, err := time.Parse(imfDateLayout, normalizeDateStr(dateStr))
	if err != nil {
		return date, err
	}
	if date.Location().String() != "GMT" && date.Location() != time.UTC {
		return date, fmt.Errorf("Date %s is not in GMT time, but %s", date, date.Location())
	}
	return date, err
}

// §     Examples of the two obsolete formats are
// §
// §       Sunday, 06-Nov-94 08:49:37 GMT   ; obsolete RFC 850 format
// §       Sun Nov  6 08:49:37 1994         ; ANSI C's asctime() format
func obsDate(dateStr string) (time.Time, error) {
	str := strings.TrimSpace(dateStr)
	if date, err := time.Parse(time.RFC850, normalizeDateStr(str)); err == nil {
		return date, err
	}
	return time.Parse(time.ANSIC, str)
}

func normalizeDateStr(dateStr string) string {
	str := strings.TrimSpace(dateStr)
	// the zone is case-insensitive on the wire
	if i := strings.LastIndex(str, " "); i >= 0 {
		str = str[:i+1] + strings.ToUpper(str[i+1:])
	}
	return str
}
