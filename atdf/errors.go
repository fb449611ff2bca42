package atdf

import (
	"errors"
	"fmt"
)

// MalformedError reports a structurally required attribute that is missing
// or unusable. It aborts the parse of the one device concerned.
type MalformedError struct {
	// Device is the device being parsed
	Device string

	// Element names the offending element, e.g. `reg "HIGH"`
	Element string

	// Attr is the missing or invalid attribute, if any
	Attr string

	// Reason describes the problem
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("%s: malformed descriptor: %s: attribute %q %s", e.Device, e.Element, e.Attr, e.Reason)
	}
	return fmt.Sprintf("%s: malformed descriptor: %s: %s", e.Device, e.Element, e.Reason)
}

// IsMalformed returns true if err is or wraps a *MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
