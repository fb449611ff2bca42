package descfile

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic means the data is not a descriptor snapshot.
	ErrBadMagic = errors.New("not a descriptor snapshot")

	// ErrChecksum means the body does not match the stored digest.
	ErrChecksum = errors.New("descriptor snapshot checksum mismatch")

	// ErrUnsupportedVersion means the snapshot was written by a newer
	// format than this package understands.
	ErrUnsupportedVersion = errors.New("unsupported descriptor snapshot format")
)

// VersionError reports the format version of a rejected snapshot.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%v: version %d (supported %d-%d)",
		ErrUnsupportedVersion, e.Version, FormatV1, CurrentFormatVersion)
}

// Unwrap returns ErrUnsupportedVersion.
func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}
