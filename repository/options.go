package repository

import (
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/logging"
)

// Source produces descriptors that no storage tier holds yet, typically
// by parsing part description documents.
type Source interface {
	// Descriptor returns the bytes of kind of deviceID, or an error
	// wrapping descriptor.ErrNotFound.
	Descriptor(kind descriptor.Kind, deviceID string) (*descriptor.Device, error)

	// DeviceIDs lists the ids the source can produce.
	DeviceIDs() ([]string, error)
}

// Config holds the repository configuration.
type Config struct {
	// Override is the user-writable tier, consulted first (optional)
	Override WritableStore

	// Builtin is the read-only tier shipped with the application (optional)
	Builtin Store

	// Source is consulted when neither tier holds a device (optional).
	// Parsed descriptors are persisted to Override.
	Source Source

	// Logger is used for logging operations (optional)
	Logger logging.Logger
}

// Option is a functional option for configuring the Repository.
type Option func(*Config)

// WithOverride sets the writable override tier.
//
// Example:
//
//	repo := repository.New(descriptor.KindFuse,
//	    repository.WithOverride(repository.NewDirStore(dir, descriptor.KindFuse, "")),
//	)
func WithOverride(store WritableStore) Option {
	return func(c *Config) {
		c.Override = store
	}
}

// WithBuiltin sets the read-only built-in tier.
//
// Example:
//
//	repo := repository.New(descriptor.KindLock,
//	    repository.WithBuiltin(repository.NewFSStore(builtinFS, descriptor.KindLock, "")),
//	)
func WithBuiltin(store Store) Option {
	return func(c *Config) {
		c.Builtin = store
	}
}

// WithSource sets the source of descriptors missing from both tiers.
//
// Example:
//
//	repo := repository.New(descriptor.KindFuse, repository.WithSource(atdf.NewDirSource(xmlDir)))
func WithSource(source Source) Option {
	return func(c *Config) {
		c.Source = source
	}
}

// WithLogger sets a logger for repository operations.
//
// Example:
//
//	repo := repository.New(descriptor.KindFuse, repository.WithLogger(myLogger))
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
