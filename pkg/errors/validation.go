package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds layer names, project names and titles.
const maxNameLength = 128

// ValidateName checks a display name (layer name, title, project name).
// Empty names are allowed; the caller falls back to a generated label.
func ValidateName(name string) error {
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}
	return nil
}

// ValidateProjectID checks a project identifier used as a file name or
// database key. It rejects path separators and traversal sequences.
func ValidateProjectID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "project id cannot be empty")
	}
	if err := ValidateName(id); err != nil {
		return err
	}
	if strings.ContainsAny(id, "/\\\x00") || strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "project id contains invalid characters: %q", id)
	}
	return nil
}

// ValidateIndex checks that i addresses one of n elements.
func ValidateIndex(i, n int) error {
	if i < 0 || i >= n {
		return New(ErrCodeInvalidIndex, "layer index %d out of range [0, %d)", i, n)
	}
	return nil
}
