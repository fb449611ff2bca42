package bytevalues

import (
	"fmt"
	"strings"

	"github.com/moffa90/go-fusebits/descriptor"
)

// DescriptorLookup resolves device ids to descriptors.
// *repository.Repository satisfies it.
type DescriptorLookup interface {
	Lookup(deviceID string) (*descriptor.Device, error)
}

// Field is a bitfield together with the byte that holds it.
type Field struct {
	descriptor.Bitfield

	// ByteIndex is the index of the holding byte
	ByteIndex int

	// ByteName is the device-local name of the holding byte
	ByteName string
}

// QualifiedName returns "BYTE.FIELD".
func (f Field) QualifiedName() string {
	return f.ByteName + "." + f.Name
}

// Values holds the raw bytes of one memory kind of one device. Each byte
// is descriptor.Unset or 0-255.
//
// Values borrows its descriptor from the lookup on each call that needs
// it and never owns it. Values is not safe for concurrent use.
type Values struct {
	kind     descriptor.Kind
	deviceID string
	lookup   DescriptorLookup
	raw      []int
	comment  string

	// fields is built on first named access
	fields map[string]Field
}

// New creates a cleared container for the bytes of kind of deviceID. The
// byte count is taken from the device's descriptor; an unknown device
// yields an error wrapping descriptor.ErrNotFound. The device id is
// normalized with descriptor.NormalizeID.
func New(kind descriptor.Kind, deviceID string, lookup DescriptorLookup) (*Values, error) {
	if lookup == nil {
		return nil, fmt.Errorf("nil descriptor lookup")
	}
	deviceID = descriptor.NormalizeID(deviceID)
	dev, err := lookup.Lookup(deviceID)
	if err != nil {
		return nil, err
	}
	v := &Values{
		kind:     kind,
		deviceID: deviceID,
		lookup:   lookup,
		raw:      make([]int, dev.ByteCount(kind)),
	}
	v.Clear()
	return v, nil
}

// DeviceID returns the device the values belong to.
func (v *Values) DeviceID() string {
	return v.deviceID
}

// Kind returns the memory kind of the values.
func (v *Values) Kind() descriptor.Kind {
	return v.kind
}

// Count returns the number of bytes.
func (v *Values) Count() int {
	return len(v.raw)
}

// Comment returns the free-text summary attached to the values.
func (v *Values) Comment() string {
	return v.comment
}

// SetComment sets the free-text summary.
func (v *Values) SetComment(s string) {
	v.comment = s
}

// Descriptor returns the descriptor of the device.
func (v *Values) Descriptor() (*descriptor.Device, error) {
	return v.lookup.Lookup(v.deviceID)
}

// Raw returns the byte at index, or descriptor.Unset.
func (v *Values) Raw(index int) (int, error) {
	if err := v.checkIndex("Raw", index); err != nil {
		return 0, err
	}
	return v.raw[index], nil
}

// SetRaw sets the byte at index to value, which must be descriptor.Unset
// or 0-255.
func (v *Values) SetRaw(index, value int) error {
	if err := v.checkIndex("SetRaw", index); err != nil {
		return err
	}
	if err := checkRaw("SetRaw", value); err != nil {
		return err
	}
	v.raw[index] = value
	return nil
}

// Values returns a copy of all bytes.
func (v *Values) Values() []int {
	return append([]int(nil), v.raw...)
}

// SetValues replaces all bytes. The slice must hold exactly Count values,
// each valid for SetRaw; nothing is changed otherwise.
func (v *Values) SetValues(values []int) error {
	if len(values) != len(v.raw) {
		return &InvalidArgumentError{
			Op:     "SetValues",
			Arg:    "length",
			Value:  len(values),
			Reason: fmt.Sprintf("want %d bytes", len(v.raw)),
		}
	}
	for _, value := range values {
		if err := checkRaw("SetValues", value); err != nil {
			return err
		}
	}
	copy(v.raw, values)
	return nil
}

// Clear sets every byte to descriptor.Unset.
func (v *Values) Clear() {
	for i := range v.raw {
		v.raw[i] = descriptor.Unset
	}
}

// IsCleared reports whether every byte is descriptor.Unset.
func (v *Values) IsCleared() bool {
	for _, b := range v.raw {
		if b != descriptor.Unset {
			return false
		}
	}
	return true
}

// SetDefaults sets each byte to its factory default. Bytes without a known
// default become descriptor.Unset.
func (v *Values) SetDefaults() error {
	dev, err := v.Descriptor()
	if err != nil {
		return err
	}
	for i := range v.raw {
		v.raw[i] = descriptor.Unset
		if b, ok := dev.Byte(v.kind, i); ok {
			v.raw[i] = b.Default
		}
	}
	return nil
}

// SetNamed stores the normalized value of bitfield name into its byte,
// leaving the other bits of the byte untouched. An Unset byte is taken
// as 0xFF before merging. Name may be qualified as "BYTE.FIELD".
func (v *Values) SetNamed(name string, value int) error {
	f, err := v.field("SetNamed", name)
	if err != nil {
		return err
	}
	if value < 0 || value > f.MaxValue() {
		return &InvalidArgumentError{
			Op:     "SetNamed",
			Arg:    "value",
			Value:  value,
			Reason: fmt.Sprintf("%s accepts 0-%d", f.QualifiedName(), f.MaxValue()),
		}
	}
	if f.ByteIndex >= len(v.raw) {
		return v.indexError("SetNamed", f.ByteIndex)
	}

	cur := v.raw[f.ByteIndex]
	if cur == descriptor.Unset {
		cur = descriptor.AllBitsSet
	}
	v.raw[f.ByteIndex] = int(uint8(cur)&^f.Mask | deposit(value, f.Mask))
	return nil
}

// Named returns the normalized value of bitfield name, or descriptor.Unset
// when its byte is unset.
func (v *Values) Named(name string) (int, error) {
	f, err := v.field("Named", name)
	if err != nil {
		return 0, err
	}
	if f.ByteIndex >= len(v.raw) {
		return 0, v.indexError("Named", f.ByteIndex)
	}
	cur := v.raw[f.ByteIndex]
	if cur == descriptor.Unset {
		return descriptor.Unset, nil
	}
	return extract(uint8(cur), f.Mask), nil
}

// NamedLabel returns the enumeration label of the current value of
// bitfield name. The boolean is false when the byte is unset or the value
// has no label.
func (v *Values) NamedLabel(name string) (string, bool, error) {
	value, err := v.Named(name)
	if err != nil || value == descriptor.Unset {
		return "", false, err
	}
	f, _ := v.field("NamedLabel", name)
	label, ok := f.EnumLabel(value)
	return label, ok, nil
}

// Bitfields lists every bitfield in byte order, then document order.
func (v *Values) Bitfields() ([]Field, error) {
	dev, err := v.Descriptor()
	if err != nil {
		return nil, err
	}
	var out []Field
	for _, b := range dev.Bytes(v.kind) {
		for _, f := range b.Bitfields {
			out = append(out, Field{Bitfield: f, ByteIndex: b.Index, ByteName: b.Name})
		}
	}
	return out, nil
}

// ByteName returns the device-local name of the byte at index.
func (v *Values) ByteName(index int) (string, error) {
	if err := v.checkIndex("ByteName", index); err != nil {
		return "", err
	}
	dev, err := v.Descriptor()
	if err != nil {
		return "", err
	}
	b, ok := dev.Byte(v.kind, index)
	if !ok {
		return "", v.indexError("ByteName", index)
	}
	return b.Name, nil
}

// Clone returns a deep copy.
func (v *Values) Clone() *Values {
	c := *v
	c.raw = v.Values()
	return &c
}

// MigrateTo returns a container for newDeviceID sized by that device's own
// descriptor. Bytes are copied index for index up to the shorter count and
// the rest are Unset. Field values are not reinterpreted; check
// IsCompatibleWith first.
func (v *Values) MigrateTo(newDeviceID string) (*Values, error) {
	out, err := New(v.kind, newDeviceID, v.lookup)
	if err != nil {
		return nil, err
	}
	copy(out.raw, v.raw)
	out.comment = v.comment
	return out, nil
}

// IsCompatibleWith reports whether values of this device can be moved to
// otherDeviceID without changing their meaning.
func (v *Values) IsCompatibleWith(otherDeviceID string) (bool, error) {
	mine, err := v.Descriptor()
	if err != nil {
		return false, err
	}
	theirs, err := v.lookup.Lookup(otherDeviceID)
	if err != nil {
		return false, err
	}
	return mine.IsCompatibleWith(theirs, v.kind), nil
}

// String formats the bytes as hex, "--" for unset ones.
func (v *Values) String() string {
	parts := make([]string, len(v.raw))
	for i, b := range v.raw {
		if b == descriptor.Unset {
			parts[i] = "--"
		} else {
			parts[i] = fmt.Sprintf("%02X", b)
		}
	}
	return fmt.Sprintf("%s %s [%s]", v.deviceID, v.kind, strings.Join(parts, " "))
}

// field resolves name, building the name map on first use.
func (v *Values) field(op, name string) (Field, error) {
	if v.fields == nil {
		fields, err := v.Bitfields()
		if err != nil {
			return Field{}, err
		}
		m := make(map[string]Field, 2*len(fields))
		for _, f := range fields {
			m[f.QualifiedName()] = f
			if _, dup := m[f.Name]; !dup {
				m[f.Name] = f
			}
		}
		v.fields = m
	}
	f, ok := v.fields[name]
	if !ok {
		return Field{}, &InvalidArgumentError{
			Op:     op,
			Arg:    "bitfield",
			Value:  name,
			Reason: fmt.Sprintf("not defined for %s %s bytes", v.deviceID, v.kind),
		}
	}
	return f, nil
}

func (v *Values) checkIndex(op string, index int) error {
	if index < 0 || index >= len(v.raw) {
		return v.indexError(op, index)
	}
	return nil
}

func (v *Values) indexError(op string, index int) error {
	return &InvalidArgumentError{
		Op:     op,
		Arg:    "index",
		Value:  index,
		Reason: fmt.Sprintf("%s has %d %s bytes", v.deviceID, len(v.raw), v.kind),
	}
}

func checkRaw(op string, value int) error {
	if value != descriptor.Unset && (value < 0 || value > descriptor.AllBitsSet) {
		return &InvalidArgumentError{
			Op:     op,
			Arg:    "value",
			Value:  value,
			Reason: "want -1 (unset) or 0-255",
		}
	}
	return nil
}
