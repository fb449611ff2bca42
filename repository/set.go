package repository

import "github.com/moffa90/go-fusebits/descriptor"

// Set pairs the fuse and lock repositories of an application. The two
// share no state.
type Set struct {
	Fuses *Repository
	Locks *Repository
}

// NewSet creates a Set whose repositories are built by newRepo, once per kind.
//
// Example:
//
//	set := repository.NewSet(func(kind descriptor.Kind) *repository.Repository {
//	    return repository.New(kind, repository.WithOverride(repository.NewDirStore(dir, kind, "")))
//	})
func NewSet(newRepo func(kind descriptor.Kind) *Repository) *Set {
	return &Set{
		Fuses: newRepo(descriptor.KindFuse),
		Locks: newRepo(descriptor.KindLock),
	}
}

// For returns the repository of kind.
func (s *Set) For(kind descriptor.Kind) *Repository {
	if kind == descriptor.KindLock {
		return s.Locks
	}
	return s.Fuses
}

// Import stores each of devs in both repositories and returns the
// failures of both.
func (s *Set) Import(devs []*descriptor.Device) []error {
	errs := s.Fuses.Import(devs)
	return append(errs, s.Locks.Import(devs)...)
}
