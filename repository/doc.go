// Package repository resolves device ids to fuse or lock descriptors.
//
// A Repository serves one memory kind and reads from up to two storage
// tiers: a user-writable override tier and a read-only built-in tier.
// When neither holds a device, an optional Source (usually a directory
// of part description documents) is parsed and the result is written to
// the override tier. Hits are cached in memory for the life of the
// Repository.
//
// # Storage
//
// Each tier stores one snapshot file per device, named <id><ext>
// (see package descfile). DirStore serves a directory on disk, FSStore
// any fs.FS, and MemoryStore keeps descriptors in memory for tests.
//
// # Usage
//
//	fuses := repository.New(descriptor.KindFuse,
//	    repository.WithOverride(repository.NewDirStore(overrideDir, descriptor.KindFuse, "")),
//	    repository.WithBuiltin(repository.NewDirStore(builtinDir, descriptor.KindFuse, "")),
//	    repository.WithSource(atdf.NewDirSource(xmlDir)),
//	)
//
//	dev, ok := fuses.Get("atmega328p")
//	if !ok {
//	    // fuses not supported for this device
//	}
//
// # Error Handling
//
// Absence is reported by Get's boolean or by Lookup returning an error
// that wraps descriptor.ErrNotFound. Storage failures are returned as
// *StorageError naming the device; batch imports report one per failed
// device and continue with the rest.
package repository
