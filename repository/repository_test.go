package repository_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fusebits/atdf"
	"github.com/moffa90/go-fusebits/descfile"
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/descriptor/descriptortest"
	"github.com/moffa90/go-fusebits/repository"
)

// recordLogger records messages for assertions.
type recordLogger struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func (l *recordLogger) Debug(msg string, _ ...any) { l.mu.Lock(); l.debugs = append(l.debugs, msg); l.mu.Unlock() }
func (l *recordLogger) Info(string, ...any)        {}
func (l *recordLogger) Warn(string, ...any)        {}
func (l *recordLogger) Error(msg string, _ ...any) { l.mu.Lock(); l.errors = append(l.errors, msg); l.mu.Unlock() }

func snapshot(t *testing.T, dev *descriptor.Device, kind descriptor.Kind) []byte {
	t.Helper()
	data, err := descfile.Marshal(dev, kind)
	require.NoError(t, err)
	return data
}

// relabeled returns the ATmega328P fixture with its first fuse byte label
// changed so tiers can be told apart.
func relabeled(label string) *descriptor.Device {
	dev := descriptortest.ATmega328P()
	dev.Fuses[0].Bitfields[0].Label = label
	return dev
}

func firstLabel(dev *descriptor.Device) string {
	return dev.Fuses[0].Bitfields[0].Label
}

func TestOverrideTakesPrecedence(t *testing.T) {
	builtin := fstest.MapFS{
		"atmega328p.fusedesc": {Data: snapshot(t, relabeled("builtin"), descriptor.KindFuse)},
	}
	override := repository.NewMemoryStore(descriptor.KindFuse, relabeled("override"))

	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(override),
		repository.WithBuiltin(repository.NewFSStore(builtin, descriptor.KindFuse, "")),
	)

	dev, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "override", firstLabel(dev))
	assert.Nil(t, dev.Locks, "fuse repository serves fuse bytes only")
}

func TestBuiltinFallback(t *testing.T) {
	builtin := fstest.MapFS{
		"atmega328p.fusedesc": {Data: snapshot(t, relabeled("builtin"), descriptor.KindFuse)},
	}
	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(repository.NewMemoryStore(descriptor.KindFuse)),
		repository.WithBuiltin(repository.NewFSStore(builtin, descriptor.KindFuse, "")),
	)

	dev, ok := repo.Get("atmega328p")
	require.True(t, ok)
	assert.Equal(t, "builtin", firstLabel(dev))
	assert.Equal(t, descfile.CurrentFormatVersion, dev.FormatVersion)
}

func TestCacheIsNotInvalidated(t *testing.T) {
	override := repository.NewMemoryStore(descriptor.KindFuse, relabeled("first"))
	repo := repository.New(descriptor.KindFuse, repository.WithOverride(override))

	dev, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "first", firstLabel(dev))

	// Changing the tier behind the repository's back is not observed.
	require.NoError(t, override.Save(relabeled("second")))
	dev, err = repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "first", firstLabel(dev))

	// Put replaces the cache entry at once.
	require.NoError(t, repo.Put(relabeled("third")))
	dev, err = repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "third", firstLabel(dev))
	assert.Equal(t, 1, repo.Cached())
}

func TestPutCopiesInput(t *testing.T) {
	repo := repository.New(descriptor.KindFuse, repository.WithOverride(repository.NewMemoryStore(descriptor.KindFuse)))

	in := relabeled("kept")
	require.NoError(t, repo.Put(in))
	in.Fuses[0].Bitfields[0].Label = "mutated"

	dev, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "kept", firstLabel(dev))
}

func TestNotFound(t *testing.T) {
	logger := &recordLogger{}
	repo := repository.New(descriptor.KindLock,
		repository.WithOverride(repository.NewDirStore(t.TempDir(), descriptor.KindLock, "")),
		repository.WithBuiltin(repository.NewFSStore(fstest.MapFS{}, descriptor.KindLock, "")),
		repository.WithLogger(logger),
	)

	_, err := repo.Lookup("atxmega128a1")
	require.Error(t, err)
	assert.True(t, descriptor.IsNotFound(err))

	dev, ok := repo.Get("atxmega128a1")
	assert.False(t, ok)
	assert.Nil(t, dev)
	assert.False(t, repo.Has("atxmega128a1"))
	assert.False(t, repo.Has(""))
	assert.Empty(t, logger.errors, "absence is not an error")
}

func TestNoTiersConfigured(t *testing.T) {
	repo := repository.New(descriptor.KindFuse)

	_, err := repo.Lookup("atmega328p")
	assert.True(t, descriptor.IsNotFound(err))

	ids, err := repo.ListKnownDeviceIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = repo.Put(descriptortest.ATmega328P())
	assert.ErrorIs(t, err, repository.ErrNoWritableStore)
}

func TestSourceParsePersistsToOverride(t *testing.T) {
	dir := t.TempDir()
	store := repository.NewDirStore(dir, descriptor.KindFuse, "")
	logger := &recordLogger{}

	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(store),
		repository.WithSource(atdf.NewDirSource(filepath.Join("..", "atdf", "testdata"))),
		repository.WithLogger(logger),
	)

	dev, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.True(t, dev.IsCompatibleWith(descriptortest.ATmega328P(), descriptor.KindFuse))
	assert.Nil(t, dev.Locks)
	assert.FileExists(t, store.Path("atmega328p"))
	assert.Contains(t, logger.debugs, "descriptor saved")

	// A fresh repository over the same override tier needs no source.
	fresh := repository.New(descriptor.KindFuse, repository.WithOverride(store))
	again, err := fresh.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, dev.Fuses, again.Fuses)

	ids, err := fresh.ListKnownDeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"atmega328p"}, ids)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	store := repository.NewDirStore(dir, descriptor.KindFuse, "")
	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(store),
		repository.WithSource(atdf.NewDirSource(filepath.Join("..", "atdf", "testdata"))),
	)

	mixed, err := repo.Lookup("ATmega328P")
	require.NoError(t, err)
	assert.Equal(t, "atmega328p", mixed.ID)

	lower, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Same(t, mixed, lower)
	assert.Equal(t, 1, repo.Cached())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "atmega328p.fusedesc", entries[0].Name())

	ids, err := repo.ListKnownDeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"atmega328p"}, ids)
}

func TestPutNormalizesID(t *testing.T) {
	store := repository.NewMemoryStore(descriptor.KindFuse)
	repo := repository.New(descriptor.KindFuse, repository.WithOverride(store))

	dev := descriptortest.ATtiny13()
	dev.ID = "ATtiny13"
	require.NoError(t, repo.Put(dev))
	assert.Equal(t, "ATtiny13", dev.ID, "input left untouched")

	ids, err := store.DeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"attiny13"}, ids)

	got, err := repo.Lookup("ATTINY13")
	require.NoError(t, err)
	assert.Equal(t, "attiny13", got.ID)
}

func TestLookupRejectsPathIDs(t *testing.T) {
	root := t.TempDir()
	outside := repository.NewDirStore(root, descriptor.KindFuse, "")
	require.NoError(t, outside.Save(descriptortest.ATtiny13()))

	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(repository.NewDirStore(filepath.Join(root, "a", "b"), descriptor.KindFuse, "")),
	)
	for _, id := range []string{"../../attiny13", "a/attiny13", ".."} {
		_, err := repo.Lookup(id)
		assert.ErrorIs(t, err, descriptor.ErrInvalidID, id)
		assert.False(t, descriptor.IsNotFound(err), id)
	}
	assert.Zero(t, repo.Cached())
}

func TestSourceWithoutConfigBytes(t *testing.T) {
	repo := repository.New(descriptor.KindLock,
		repository.WithSource(atdf.NewDirSource(filepath.Join("..", "atdf", "testdata"))),
	)

	dev, ok := repo.Get("attiny13")
	require.True(t, ok, "a device without lock bytes is still known")
	assert.Empty(t, dev.Locks)
}

func TestSourcePersistFailureStillCaches(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	logger := &recordLogger{}

	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(repository.NewDirStore(filepath.Join(blocker, "fuses"), descriptor.KindFuse, "")),
		repository.WithSource(atdf.NewDirSource(filepath.Join("..", "atdf", "testdata"))),
		repository.WithLogger(logger),
	)

	dev, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	require.NotNil(t, dev)
	assert.Contains(t, logger.errors, "failed to persist descriptor")
	assert.Equal(t, 1, repo.Cached())
}

func TestListKnownDeviceIDsUnion(t *testing.T) {
	override := repository.NewMemoryStore(descriptor.KindFuse,
		descriptortest.NoFuses("atmega8"),
		descriptortest.NoFuses("atmega328p"),
	)
	// Built-in entries are never decoded while listing.
	builtin := fstest.MapFS{
		"atmega328p.fusedesc": {Data: []byte("not decoded")},
		"attiny13.fusedesc":   {Data: []byte("not decoded")},
		"attiny13.lockdesc":   {Data: []byte("other kind")},
		"README.txt":          {Data: []byte("ignored")},
		".hidden.fusedesc":    {Data: []byte("ignored")},
	}

	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(override),
		repository.WithBuiltin(repository.NewFSStore(builtin, descriptor.KindFuse, "")),
	)

	ids, err := repo.ListKnownDeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"atmega328p", "atmega8", "attiny13"}, ids)
}

func TestImportReportsWriteErrorsPerDevice(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(repository.NewDirStore(filepath.Join(blocker, "fuses"), descriptor.KindFuse, "")),
	)

	errs := repo.Import([]*descriptor.Device{descriptortest.ATmega328P(), descriptortest.ATtiny13()})
	require.Len(t, errs, 2)
	for i, id := range []string{"atmega328p", "attiny13"} {
		var se *repository.StorageError
		require.ErrorAs(t, errs[i], &se)
		assert.Equal(t, id, se.DeviceID)
		assert.Equal(t, "save", se.Op)
		assert.Contains(t, se.Error(), "create directory")
	}

	// Both were still cached.
	assert.True(t, repo.Has("atmega328p"))
	assert.True(t, repo.Has("attiny13"))
}

func TestImportContinuesAfterInvalidDevice(t *testing.T) {
	store := repository.NewMemoryStore(descriptor.KindFuse)
	repo := repository.New(descriptor.KindFuse, repository.WithOverride(store))

	bad := descriptortest.ATtiny13()
	bad.Fuses[0].Index = 3

	errs := repo.Import([]*descriptor.Device{bad, nil, descriptortest.ATmega328P()})
	require.Len(t, errs, 2)
	assert.True(t, repository.IsStorageError(errs[0]))
	assert.Contains(t, errs[0].Error(), "attiny13")

	ids, err := store.DeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"atmega328p"}, ids)
}

func TestCorruptOverrideFallsBack(t *testing.T) {
	dir := t.TempDir()
	store := repository.NewDirStore(dir, descriptor.KindFuse, "")
	require.NoError(t, os.WriteFile(store.Path("atmega328p"), []byte("garbage"), 0o644))
	logger := &recordLogger{}

	builtin := repository.NewMemoryStore(descriptor.KindFuse, relabeled("builtin"))
	repo := repository.New(descriptor.KindFuse,
		repository.WithOverride(store),
		repository.WithBuiltin(builtin),
		repository.WithLogger(logger),
	)

	dev, err := repo.Lookup("atmega328p")
	require.NoError(t, err)
	assert.Equal(t, "builtin", firstLabel(dev))
	assert.Contains(t, logger.errors, "failed to load descriptor")

	// Without a fallback the read failure surfaces as a StorageError.
	alone := repository.New(descriptor.KindFuse, repository.WithOverride(store))
	_, err = alone.Lookup("atmega328p")
	require.Error(t, err)
	assert.False(t, descriptor.IsNotFound(err))
	assert.True(t, repository.IsStorageError(err))
	assert.ErrorIs(t, err, descfile.ErrBadMagic)
}

func TestConcurrentLookups(t *testing.T) {
	repo := repository.New(descriptor.KindFuse,
		repository.WithBuiltin(repository.NewMemoryStore(descriptor.KindFuse,
			descriptortest.ATmega328P(), descriptortest.ATmega328(), descriptortest.ATtiny13())),
	)

	ids := []string{"atmega328p", "atmega328", "attiny13", "missing"}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ids[i%len(ids)]
			_, ok := repo.Get(id)
			assert.Equal(t, id != "missing", ok, fmt.Sprintf("lookup %s", id))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, repo.Cached())
}

func TestSet(t *testing.T) {
	set := repository.NewSet(func(kind descriptor.Kind) *repository.Repository {
		return repository.New(kind, repository.WithOverride(repository.NewMemoryStore(kind)))
	})
	assert.Equal(t, descriptor.KindFuse, set.For(descriptor.KindFuse).Kind())
	assert.Equal(t, descriptor.KindLock, set.For(descriptor.KindLock).Kind())

	errs := set.Import([]*descriptor.Device{descriptortest.ATmega328P()})
	assert.Empty(t, errs)

	fuses, ok := set.Fuses.Get("atmega328p")
	require.True(t, ok)
	assert.Len(t, fuses.Fuses, 3)
	assert.Nil(t, fuses.Locks)

	locks, ok := set.Locks.Get("atmega328p")
	require.True(t, ok)
	assert.Len(t, locks.Locks, 1)
	assert.Nil(t, locks.Fuses)
}
