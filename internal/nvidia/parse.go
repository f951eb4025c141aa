package nvidia

import (
	"errors"
	"strconv"
	"strings"
)

var errNoDigits = errors.New("no digits")

// ParseNumber extracts an integer from free-form telemetry text such as
// "45 C" or "60 %" by dropping every character that is not a decimal digit.
func ParseNumber(s string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, s)

	if digits == "" {
		return 0, errNoDigits
	}

	return strconv.Atoi(digits)
}
