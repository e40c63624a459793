// Package slug validates and normalizes project slugs.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	maxSlugLen  = 64
)

// Normalize converts a string to a valid slug: lower-case, spaces and
// underscores become hyphens, anything outside [a-z0-9-] is dropped.
func Normalize(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}

	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	s = strings.Trim(result.String(), "-")

	if err := Validate(s); err != nil {
		return "", err
	}
	return s, nil
}

// Validate checks if a string is a valid slug without normalization
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	if len(s) > maxSlugLen {
		return fmt.Errorf("slug exceeds maximum length of %d bytes", maxSlugLen)
	}

	if !slugPattern.MatchString(s) {
		return fmt.Errorf("invalid slug format: must be lowercase, start with alphanumeric, and contain only [a-z0-9-]")
	}

	return nil
}
