package repository

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/moffa90/go-fusebits/descriptor"
)

// Repository resolves device ids to descriptors of one memory kind.
//
// A lookup checks the in-memory cache, then the override tier, then the
// built-in tier, then the source. The first hit is cached. The cache is
// never invalidated: changes to the built-in tier are seen after a
// restart, while Put and source parses replace cache entries at once.
//
// Returned descriptors are shared and must not be modified.
// Repository is safe for concurrent use.
type Repository struct {
	kind   descriptor.Kind
	config Config

	mu    sync.RWMutex
	cache map[string]*descriptor.Device
}

// New creates a Repository for kind.
//
// Example:
//
//	fuses := repository.New(descriptor.KindFuse,
//	    repository.WithOverride(repository.NewDirStore(userDir, descriptor.KindFuse, "")),
//	    repository.WithBuiltin(repository.NewDirStore(sharedDir, descriptor.KindFuse, "")),
//	)
//	dev, err := fuses.Lookup("atmega328p")
func New(kind descriptor.Kind, opts ...Option) *Repository {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Repository{
		kind:   kind,
		config: cfg,
		cache:  make(map[string]*descriptor.Device),
	}
}

// Kind returns the memory kind the repository serves.
func (r *Repository) Kind() descriptor.Kind {
	return r.kind
}

// Get returns the descriptor of deviceID and whether one was found.
// Storage failures are logged and reported as absent.
func (r *Repository) Get(deviceID string) (*descriptor.Device, bool) {
	dev, err := r.Lookup(deviceID)
	if err != nil {
		if !descriptor.IsNotFound(err) {
			r.logError("descriptor lookup failed", "device", deviceID, "error", err)
		}
		return nil, false
	}
	return dev, true
}

// Has reports whether a descriptor exists for deviceID.
func (r *Repository) Has(deviceID string) bool {
	_, ok := r.Get(deviceID)
	return ok
}

// Lookup returns the descriptor of deviceID. Ids are case-insensitive;
// the descriptor is cached and persisted under the normalized id. It
// returns an error wrapping descriptor.ErrNotFound when no tier and no
// source knows the device, and one wrapping descriptor.ErrInvalidID for
// ids that cannot name a file. A tier that fails to read is skipped; if
// no later tier has the device, the failure is returned as a *StorageError.
func (r *Repository) Lookup(deviceID string) (*descriptor.Device, error) {
	deviceID = descriptor.NormalizeID(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("empty device id: %w", descriptor.ErrNotFound)
	}
	if err := descriptor.CheckID(deviceID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	dev, ok := r.cache[deviceID]
	r.mu.RUnlock()
	if ok {
		return dev, nil
	}

	var loadErr error
	tiers := []struct {
		name  string
		store Store
	}{
		{"override", r.config.Override},
		{"builtin", r.config.Builtin},
	}
	for _, tier := range tiers {
		if tier.store == nil {
			continue
		}
		dev, err := tier.store.Load(deviceID)
		if err == nil {
			r.logDebug("descriptor loaded", "device", deviceID, "kind", r.kind, "tier", tier.name)
			return r.remember(dev), nil
		}
		if descriptor.IsNotFound(err) {
			continue
		}
		r.logError("failed to load descriptor", "device", deviceID, "kind", r.kind, "tier", tier.name, "error", err)
		if loadErr == nil {
			loadErr = &StorageError{DeviceID: deviceID, Op: "load", Err: err}
		}
	}

	if r.config.Source != nil {
		dev, err := r.config.Source.Descriptor(r.kind, deviceID)
		switch {
		case err == nil:
			r.logDebug("descriptor parsed", "device", deviceID, "kind", r.kind)
			dev = dev.Only(r.kind)
			dev.ID = deviceID
			dev = r.remember(dev)
			if perr := r.persist(dev); perr != nil && !errors.Is(perr, ErrNoWritableStore) {
				r.logError("failed to persist descriptor", "device", deviceID, "kind", r.kind, "error", perr)
			}
			return dev, nil
		case !descriptor.IsNotFound(err):
			return nil, err
		}
	}

	if loadErr != nil {
		return nil, loadErr
	}
	return nil, fmt.Errorf("%s %s: %w", deviceID, r.kind, descriptor.ErrNotFound)
}

// Put persists dev to the override tier under its normalized id and
// replaces its cache entry. The cache entry is replaced even when
// persisting fails.
func (r *Repository) Put(dev *descriptor.Device) error {
	if err := dev.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}
	view := dev.Clone().Only(r.kind)
	view.ID = descriptor.NormalizeID(view.ID)
	return r.persist(r.remember(view))
}

// Import stores each of devs with Put. A failure for one device does not
// stop the others; the returned slice holds one error per failed device,
// in input order, and is empty when all succeeded.
func (r *Repository) Import(devs []*descriptor.Device) []error {
	var errs []error
	for _, dev := range devs {
		if err := r.Put(dev); err != nil {
			var se *StorageError
			if !errors.As(err, &se) {
				id := ""
				if dev != nil {
					id = dev.ID
				}
				err = &StorageError{DeviceID: id, Op: "import", Err: err}
			}
			errs = append(errs, err)
			continue
		}
		r.logInfo("descriptor imported", "device", dev.ID, "kind", r.kind)
	}
	return errs
}

// ListKnownDeviceIDs returns the sorted union of the ids held by the
// override and built-in tiers. Snapshots are not decoded.
func (r *Repository) ListKnownDeviceIDs() ([]string, error) {
	seen := make(map[string]struct{})
	for _, store := range []Store{r.config.Override, r.config.Builtin} {
		if store == nil {
			continue
		}
		ids, err := store.DeviceIDs()
		if err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Cached returns the number of descriptors held in the cache.
func (r *Repository) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// remember stores dev in the cache and returns it.
func (r *Repository) remember(dev *descriptor.Device) *descriptor.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[dev.ID] = dev
	return dev
}

func (r *Repository) persist(dev *descriptor.Device) error {
	if r.config.Override == nil {
		return ErrNoWritableStore
	}
	if err := r.config.Override.Save(dev); err != nil {
		return &StorageError{DeviceID: dev.ID, Op: "save", Err: err}
	}
	r.logDebug("descriptor saved", "device", dev.ID, "kind", r.kind)
	return nil
}

// logDebug logs a debug message if a logger is configured.
func (r *Repository) logDebug(msg string, keysAndValues ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (r *Repository) logInfo(msg string, keysAndValues ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (r *Repository) logError(msg string, keysAndValues ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Error(msg, keysAndValues...)
	}
}
