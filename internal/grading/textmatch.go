package grading

import "strings"

// textEqual compares a submission to the expected answer ignoring case and
// leading/trailing whitespace. Interior whitespace and punctuation are
// significant.
func textEqual(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}
