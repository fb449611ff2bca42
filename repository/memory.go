package repository

import (
	"fmt"
	"sort"
	"sync"

	"github.com/moffa90/go-fusebits/descriptor"
)

// MemoryStore is an in-memory WritableStore, useful in tests or when the
// caller preloads a fixed set of devices.
type MemoryStore struct {
	mu      sync.RWMutex
	kind    descriptor.Kind
	devices map[string]*descriptor.Device
}

// NewMemoryStore creates a MemoryStore for kind holding devs.
func NewMemoryStore(kind descriptor.Kind, devs ...*descriptor.Device) *MemoryStore {
	s := &MemoryStore{kind: kind, devices: make(map[string]*descriptor.Device)}
	for _, dev := range devs {
		s.devices[dev.ID] = dev.Clone().Only(kind)
	}
	return s
}

// Load implements Store.
func (s *MemoryStore) Load(deviceID string) (*descriptor.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dev, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", deviceID, descriptor.ErrNotFound)
	}
	return dev.Clone(), nil
}

// DeviceIDs implements Store.
func (s *MemoryStore) DeviceIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Save implements WritableStore.
func (s *MemoryStore) Save(dev *descriptor.Device) error {
	if err := dev.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[dev.ID] = dev.Clone().Only(s.kind)
	return nil
}
