package ids

import (
	"strings"

	"github.com/segmentio/ksuid"
)

// New returns a time-ordered, collision resistant identifier.
func New() string {
	return ksuid.New().String()
}

// Filename builds a stored filename from a fresh id and the lower-cased extension.
func Filename(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return New()
	}
	return New() + "." + ext
}
