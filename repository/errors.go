package repository

import (
	"errors"
	"fmt"
)

// ErrNoWritableStore is returned by Put when the repository has no
// override tier.
var ErrNoWritableStore = errors.New("repository has no writable store")

// StorageError reports a failure to read, write or list persisted
// descriptors. It names the affected device so batch operations can
// report each failure and carry on.
type StorageError struct {
	DeviceID string
	Op       string
	Err      error
}

func (e *StorageError) Error() string {
	if e.DeviceID == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: storage %s failed: %v", e.DeviceID, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError checks if an error is a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
