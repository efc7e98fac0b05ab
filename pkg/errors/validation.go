package errors

import (
	"strings"
	"unicode"
)

// ValidateID validates an identifier used for images, galleries and sessions.
// IDs end up in cache keys, file names and URLs, so the rules are conservative:
//   - No empty IDs
//   - Maximum length of 256 characters
//   - No control characters or null bytes
//   - No path separators or traversal sequences
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "%s id too long (max 256 characters)", kind)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s id contains invalid control characters", kind)
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "%s id contains invalid characters: %q", kind, pattern)
		}
	}

	return nil
}
