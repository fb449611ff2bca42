package atdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moffa90/go-fusebits/descriptor"
)

// DocumentExt is the file extension of part description documents.
const DocumentExt = ".xml"

// DirSource serves descriptors parsed on demand from a directory of part
// description documents, one file per device (ATmega328P.xml, ...).
// File names are matched case-insensitively against device ids.
type DirSource struct {
	dir    string
	parser *Parser
}

// NewDirSource creates a DirSource reading documents from dir.
func NewDirSource(dir string, opts ...Option) *DirSource {
	return &DirSource{dir: dir, parser: NewParser(opts...)}
}

// Dir returns the directory the source reads from.
func (s *DirSource) Dir() string {
	return s.dir
}

// Descriptor parses the document for deviceID and returns its bytes of kind.
// The descriptor carries the lower-cased id of the matched file, whatever
// the spelling of deviceID. It returns descriptor.ErrNotFound when no
// document exists for deviceID.
func (s *DirSource) Descriptor(kind descriptor.Kind, deviceID string) (*descriptor.Device, error) {
	path, err := s.path(deviceID)
	if err != nil {
		return nil, err
	}
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.parser.ParseKind(DeviceIDFromPath(path), kind, doc)
}

// DeviceIDs lists the device ids of all documents in the directory.
func (s *DirSource) DeviceIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), DocumentExt) {
			continue
		}
		ids = append(ids, DeviceIDFromPath(e.Name()))
	}
	sort.Strings(ids)
	return ids, nil
}

// path finds the document of deviceID.
func (s *DirSource) path(deviceID string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", deviceID, descriptor.ErrNotFound)
		}
		return "", fmt.Errorf("list %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), DocumentExt) {
			continue
		}
		if DeviceIDFromPath(e.Name()) == strings.ToLower(deviceID) {
			return filepath.Join(s.dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%s: %w", deviceID, descriptor.ErrNotFound)
}
