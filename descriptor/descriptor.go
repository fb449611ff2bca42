package descriptor

import (
	"fmt"
	"math/bits"
)

// Unset marks a byte value or default that has not been captured.
// It is distinct from every real byte value 0x00-0xFF.
const Unset = -1

// MaxBytesPerKind bounds the number of bytes of one kind a device may have.
// Real parts use between zero and six.
const MaxBytesPerKind = 8

// AllBitsSet is the erased state of a configuration byte.
const AllBitsSet = 0xFF

// EnumValue gives a human-readable label to one value of a Bitfield.
type EnumValue struct {
	// Value is the normalized (right-aligned) bitfield value
	Value int

	// Label is the display text for Value
	Label string
}

// Bitfield describes one named, masked sub-field of a configuration byte.
type Bitfield struct {
	// Name is unique within its byte, e.g. "CKSEL"
	Name string

	// Label is the descriptive text, e.g. "Select Clock Source"
	Label string

	// Mask selects the bits of the byte that belong to this field.
	// It is never zero.
	Mask uint8

	// Enum optionally lists named values in document order
	Enum []EnumValue
}

// Shift returns the bit position of the lowest bit of the mask.
func (b Bitfield) Shift() int {
	if b.Mask == 0 {
		return 0
	}
	return bits.TrailingZeros8(b.Mask)
}

// Width returns the number of bits selected by the mask.
func (b Bitfield) Width() int {
	return bits.OnesCount8(b.Mask)
}

// MaxValue returns the largest normalized value the field can hold,
// 2^popcount(mask) - 1.
func (b Bitfield) MaxValue() int {
	return (1 << b.Width()) - 1
}

// EnumLabel returns the enumeration label for value v, if any.
func (b Bitfield) EnumLabel(v int) (string, bool) {
	for _, e := range b.Enum {
		if e.Value == v {
			return e.Label, true
		}
	}
	return "", false
}

// Byte describes one physical fuse or lock byte.
type Byte struct {
	// Kind is the memory this byte belongs to
	Kind Kind

	// Name is the device-local byte name, e.g. "LOW", "HIGH", "LOCKBIT"
	Name string

	// Index is the storage position of the byte within its kind
	Index int

	// Default is the factory value, or Unset when unknown
	Default int

	// Bitfields lists the fields of the byte in document order
	Bitfields []Bitfield
}

// HasDefault reports whether a factory default is known for the byte.
func (b Byte) HasDefault() bool {
	return b.Default != Unset
}

// Bitfield looks up a field of this byte by name.
func (b Byte) Bitfield(name string) (Bitfield, bool) {
	for _, f := range b.Bitfields {
		if f.Name == name {
			return f, true
		}
	}
	return Bitfield{}, false
}

// Device is the complete configuration byte description of one device.
type Device struct {
	// ID is the device identifier, e.g. "atmega328p"
	ID string

	// FormatVersion records the persisted snapshot format the descriptor
	// was produced for
	FormatVersion int

	// Fuses lists the fuse bytes ordered by Index
	Fuses []Byte

	// Locks lists the lock bytes ordered by Index
	Locks []Byte
}

// Bytes returns the byte descriptors of the given kind.
func (d *Device) Bytes(kind Kind) []Byte {
	if d == nil {
		return nil
	}
	if kind == KindLock {
		return d.Locks
	}
	return d.Fuses
}

// ByteCount returns the number of bytes of the given kind.
func (d *Device) ByteCount(kind Kind) int {
	return len(d.Bytes(kind))
}

// Byte returns the descriptor for the byte of the given kind at index.
func (d *Device) Byte(kind Kind, index int) (Byte, bool) {
	bs := d.Bytes(kind)
	if index < 0 || index >= len(bs) {
		return Byte{}, false
	}
	return bs[index], true
}

// IsCompatibleWith reports whether values captured for d can be transferred
// to other for the given kind: same byte count and, byte by byte, the same
// (name, mask) bitfields in the same order. Labels and enumerations are not
// compared. The relation is reflexive and symmetric.
func (d *Device) IsCompatibleWith(other *Device, kind Kind) bool {
	if d == nil || other == nil {
		return d == other
	}
	mine, theirs := d.Bytes(kind), other.Bytes(kind)
	if len(mine) != len(theirs) {
		return false
	}
	for i := range mine {
		a, b := mine[i].Bitfields, theirs[i].Bitfields
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j].Name != b[j].Name || a[j].Mask != b[j].Mask {
				return false
			}
		}
	}
	return true
}

// Validate checks the structural invariants of a finalized descriptor.
func (d *Device) Validate() error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if d.ID == "" {
		return fmt.Errorf("descriptor has empty device id")
	}
	if err := CheckID(d.ID); err != nil {
		return err
	}
	for _, kind := range Kinds {
		bs := d.Bytes(kind)
		if len(bs) > MaxBytesPerKind {
			return fmt.Errorf("%s: %d %s bytes exceed maximum %d", d.ID, len(bs), kind, MaxBytesPerKind)
		}
		for i, b := range bs {
			if b.Index != i {
				return fmt.Errorf("%s: %s byte %q at position %d has index %d", d.ID, kind, b.Name, i, b.Index)
			}
			if b.Kind != kind {
				return fmt.Errorf("%s: byte %q listed as %s but marked %s", d.ID, b.Name, kind, b.Kind)
			}
			if b.Default != Unset && (b.Default < 0 || b.Default > AllBitsSet) {
				return fmt.Errorf("%s: byte %q default %d out of range", d.ID, b.Name, b.Default)
			}
			seen := make(map[string]struct{}, len(b.Bitfields))
			for _, f := range b.Bitfields {
				if f.Mask == 0 {
					return fmt.Errorf("%s: bitfield %s.%s has zero mask", d.ID, b.Name, f.Name)
				}
				if _, dup := seen[f.Name]; dup {
					return fmt.Errorf("%s: duplicate bitfield %s.%s", d.ID, b.Name, f.Name)
				}
				seen[f.Name] = struct{}{}
			}
		}
	}
	return nil
}

// Only returns a shallow copy of d carrying just the bytes of kind.
// Per-kind repositories store and hand out these views.
func (d *Device) Only(kind Kind) *Device {
	if d == nil {
		return nil
	}
	view := &Device{ID: d.ID, FormatVersion: d.FormatVersion}
	if kind == KindLock {
		view.Locks = d.Locks
	} else {
		view.Fuses = d.Fuses
	}
	return view
}

// Clone returns a deep copy of d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	return &Device{
		ID:            d.ID,
		FormatVersion: d.FormatVersion,
		Fuses:         cloneBytes(d.Fuses),
		Locks:         cloneBytes(d.Locks),
	}
}

func cloneBytes(in []Byte) []Byte {
	if in == nil {
		return nil
	}
	out := make([]Byte, len(in))
	for i, b := range in {
		out[i] = b
		out[i].Bitfields = make([]Bitfield, len(b.Bitfields))
		for j, f := range b.Bitfields {
			out[i].Bitfields[j] = f
			if f.Enum != nil {
				out[i].Bitfields[j].Enum = append([]EnumValue(nil), f.Enum...)
			}
		}
	}
	return out
}
