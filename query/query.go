// Package query turns user input into searchable keywords
package query

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxRange bounds how many numbers a single "a-b" range may expand to
const MaxRange = 1000

var (
	separators   = strings.NewReplacer("(", ",", ")", ",", "[", ",", "]", ",")
	rangePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	numPattern   = regexp.MustCompile(`\d+`)
)

// Numbers expands a list such as "28, 29, 30", "28-32"
// or "3( 436, 204)" into catalog numbers, in input order
func Numbers(text string) []int {
	var numbers []int
	for _, part := range strings.Split(separators.Replace(text), ",") {
		part = strings.TrimSpace(part)
		if len(part) == 0 {
			continue
		}

		if match := rangePattern.FindStringSubmatch(part); match != nil {
			start, errStart := strconv.Atoi(match[1])
			end, errEnd := strconv.Atoi(match[2])
			if errStart == nil && errEnd == nil {
				if start <= end && end-start < MaxRange {
					for n := start; n <= end; n++ {
						numbers = append(numbers, n)
					}
				}
				continue
			}
		}

		for _, token := range numPattern.FindAllString(part, -1) {
			if n, err := strconv.Atoi(token); err == nil {
				numbers = append(numbers, n)
			}
		}
	}
	return numbers
}

// Number returns the first number token in q
func Number(q string) (string, bool) {
	token := numPattern.FindString(q)
	return token, len(token) > 0
}

// IsNumeric reports whether q is a bare catalog number,
// optionally followed by unit (e.g. "28" or "28장")
func IsNumeric(q, unit string) bool {
	q = strings.TrimSpace(q)
	if len(unit) > 0 {
		if stem, ok := strings.CutSuffix(q, unit); ok {
			q = strings.TrimSpace(stem)
		}
	}
	if len(q) == 0 {
		return false
	}
	for _, r := range q {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Keyword builds the search keyword for q: numeric queries become
// "{prefix} {n}{unit}", anything else is searched as typed
func Keyword(prefix, q, unit string) string {
	q = strings.TrimSpace(q)
	if !IsNumeric(q, unit) {
		return q
	}
	n, _ := Number(q)
	return strings.TrimSpace(prefix + " " + n + unit)
}
