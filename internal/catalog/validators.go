// internal/catalog/validators.go
package catalog

import (
	"fmt"
	"strings"
)

// Validator checks a trimmed answer and returns a human-readable rejection
// reason, or "" when the answer is acceptable.
type Validator func(v string) string

// ExactDigits requires the answer to be exactly n digits, nothing else.
func ExactDigits(n int) Validator {
	return func(v string) string {
		if len(v) != n {
			return fmt.Sprintf("identifier must be exactly %d digits", n)
		}
		for _, r := range v {
			if r < '0' || r > '9' {
				return fmt.Sprintf("identifier must be exactly %d digits (numbers only)", n)
			}
		}
		return ""
	}
}

// MinLines requires at least n non-empty lines.
func MinLines(n int) Validator {
	return func(v string) string {
		count := 0
		for _, line := range strings.Split(v, "\n") {
			if strings.TrimSpace(line) != "" {
				count++
			}
		}
		if count < n {
			return fmt.Sprintf("answer must have at least %d lines", n)
		}
		return ""
	}
}
