package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no descriptor exists for a device id.
// Many callers treat it as "fuses not supported for this device" rather
// than as a failure.
var ErrNotFound = errors.New("descriptor not found")

// ErrInvalidID is returned for device ids that cannot name a stored
// descriptor, such as ids containing path separators.
var ErrInvalidID = errors.New("invalid device id")

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NormalizeID returns the canonical spelling of a device id: trimmed and
// lower-cased, so "ATmega328P" and "atmega328p" name the same device.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// CheckID reports an error wrapping ErrInvalidID when id is empty, is a
// relative path element or contains a path separator.
func CheckID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty device id: %w", ErrInvalidID)
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.Contains(id, ".."):
		return fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	return nil
}
