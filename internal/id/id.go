// Package id formats and parses friendly display IDs for projects and import
// batches.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	projectIDPattern = regexp.MustCompile(`^P-\d{5}$`)
	importIDPattern  = regexp.MustCompile(`^IMP-\d{5}$`)
	uuidPattern      = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// Type represents the type of resource
type Type string

const (
	TypeProject Type = "project"
	TypeImport  Type = "import"
)

// FormatProject formats a project friendly ID
func FormatProject(seq int64) string {
	return fmt.Sprintf("P-%05d", seq)
}

// FormatImport formats an import-batch friendly ID
func FormatImport(seq int64) string {
	return fmt.Sprintf("IMP-%05d", seq)
}

// Parse parses an ID string and returns the type and sequence number
func Parse(id string) (Type, int64, error) {
	id = strings.TrimSpace(id)

	switch {
	case projectIDPattern.MatchString(id):
		seq, _ := strconv.ParseInt(id[2:], 10, 64)
		return TypeProject, seq, nil
	case importIDPattern.MatchString(id):
		seq, _ := strconv.ParseInt(id[4:], 10, 64)
		return TypeImport, seq, nil
	default:
		return "", 0, fmt.Errorf("invalid friendly ID format: %s", id)
	}
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// IsFriendlyID checks if a string is a valid friendly ID
func IsFriendlyID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}
