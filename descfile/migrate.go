package descfile

import (
	"fmt"

	"github.com/moffa90/go-fusebits/descriptor"
)

// applyMigrations upgrades a body written in format version from to
// CurrentFormatVersion, one version at a time.
func applyMigrations(b *body, kind descriptor.Kind, from int) error {
	for version := from; version < CurrentFormatVersion; version++ {
		if err := applyMigration(b, kind, version); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", version, version+1, err)
		}
	}
	return nil
}

// applyMigration applies a single version upgrade.
func applyMigration(b *body, kind descriptor.Kind, version int) error {
	switch version {
	case FormatV1:
		migrateV1ToV2(b, kind)
	default:
		return fmt.Errorf("unknown version %d", version)
	}
	return nil
}

// migrateV1ToV2 fills in lock byte defaults. V1 never stored them and every
// lock byte reads 0xFF when erased.
func migrateV1ToV2(b *body, kind descriptor.Kind) {
	if kind != descriptor.KindLock {
		return
	}
	for i := range b.Bytes {
		b.Bytes[i].HasDefault = true
		b.Bytes[i].Default = descriptor.AllBitsSet
	}
}
