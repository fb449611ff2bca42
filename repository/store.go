package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moffa90/go-fusebits/descfile"
	"github.com/moffa90/go-fusebits/descriptor"
)

// Store is one storage tier of persisted descriptors of a single kind.
type Store interface {
	// Load returns the descriptor of deviceID, or an error wrapping
	// descriptor.ErrNotFound when the tier has none.
	Load(deviceID string) (*descriptor.Device, error)

	// DeviceIDs lists the ids the tier holds, derived from file names
	// without decoding them.
	DeviceIDs() ([]string, error)
}

// WritableStore is a Store that can persist descriptors.
type WritableStore interface {
	Store

	// Save persists dev, replacing any previous snapshot of the same id.
	Save(dev *descriptor.Device) error
}

// DirStore keeps one snapshot file per device in a directory of the
// local file system. The directory is created on first Save.
type DirStore struct {
	dir  string
	kind descriptor.Kind
	ext  string
}

// NewDirStore creates a DirStore for kind rooted at dir. An empty ext
// selects the default extension of kind.
func NewDirStore(dir string, kind descriptor.Kind, ext string) *DirStore {
	if ext == "" {
		ext = descfile.Ext(kind)
	}
	return &DirStore{dir: dir, kind: kind, ext: ext}
}

// Dir returns the directory of the store.
func (s *DirStore) Dir() string {
	return s.dir
}

// Path returns the snapshot path of deviceID.
func (s *DirStore) Path(deviceID string) string {
	return filepath.Join(s.dir, descfile.FileName(deviceID, s.ext))
}

// Load implements Store. Ids that would resolve outside the directory
// are rejected with descriptor.ErrInvalidID.
func (s *DirStore) Load(deviceID string) (*descriptor.Device, error) {
	if err := descriptor.CheckID(deviceID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(deviceID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", deviceID, descriptor.ErrNotFound)
		}
		return nil, err
	}
	return decodeSnapshot(data, deviceID, s.kind)
}

// DeviceIDs implements Store. A missing directory holds no ids.
func (s *DirStore) DeviceIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return idsFromEntries(entries, s.ext), nil
}

// Save implements WritableStore. The snapshot is written to a temporary
// file and renamed into place.
func (s *DirStore) Save(dev *descriptor.Device) error {
	data, err := descfile.Marshal(dev, s.kind)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+dev.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(dev.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// FSStore is a read-only Store over an fs.FS, such as an embedded
// directory of built-in descriptors.
type FSStore struct {
	fsys fs.FS
	kind descriptor.Kind
	ext  string
}

// NewFSStore creates an FSStore for kind reading the root of fsys.
// An empty ext selects the default extension of kind.
func NewFSStore(fsys fs.FS, kind descriptor.Kind, ext string) *FSStore {
	if ext == "" {
		ext = descfile.Ext(kind)
	}
	return &FSStore{fsys: fsys, kind: kind, ext: ext}
}

// Load implements Store.
func (s *FSStore) Load(deviceID string) (*descriptor.Device, error) {
	data, err := fs.ReadFile(s.fsys, descfile.FileName(deviceID, s.ext))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", deviceID, descriptor.ErrNotFound)
		}
		return nil, err
	}
	return decodeSnapshot(data, deviceID, s.kind)
}

// DeviceIDs implements Store.
func (s *FSStore) DeviceIDs() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return idsFromEntries(entries, s.ext), nil
}

// decodeSnapshot decodes a snapshot and checks it belongs to deviceID and kind.
func decodeSnapshot(data []byte, deviceID string, kind descriptor.Kind) (*descriptor.Device, error) {
	snap, err := descfile.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if snap.Kind != kind {
		return nil, fmt.Errorf("snapshot holds %s bytes, want %s", snap.Kind, kind)
	}
	if snap.Device.ID != deviceID {
		return nil, fmt.Errorf("snapshot holds device %q", snap.Device.ID)
	}
	return snap.Device, nil
}

func idsFromEntries(entries []fs.DirEntry, ext string) []string {
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		if id := strings.TrimSuffix(name, ext); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
