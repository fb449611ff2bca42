package descriptor

import (
	"fmt"
	"strings"
)

// Kind identifies one of the two configuration memories of a device.
type Kind int

const (
	// KindFuse selects the fuse bytes.
	KindFuse Kind = iota

	// KindLock selects the lock byte(s).
	KindLock
)

// Memspace attribute values used by part description documents.
const (
	MemspaceFuse = "FUSE"
	MemspaceLock = "LOCKBIT"
)

// Kinds lists every memory kind in a stable order.
var Kinds = []Kind{KindFuse, KindLock}

func (k Kind) String() string {
	switch k {
	case KindFuse:
		return "fuse"
	case KindLock:
		return "lock"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Memspace returns the memspace attribute value that marks this kind's
// register group in a part description document.
func (k Kind) Memspace() string {
	if k == KindLock {
		return MemspaceLock
	}
	return MemspaceFuse
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k == KindFuse || k == KindLock
}

// ParseKind converts "fuse"/"fuses"/"lock"/"locks"/"lockbit" (any case)
// into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fuse", "fuses":
		return KindFuse, nil
	case "lock", "locks", "lockbit", "lockbits":
		return KindLock, nil
	default:
		return 0, fmt.Errorf("unknown memory kind %q (want fuse or lock)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid memory kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
