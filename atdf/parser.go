package atdf

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/moffa90/go-fusebits/descfile"
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/logging"
)

// Element and attribute names of the register description.
const (
	elemRegisters     = "registers"
	elemRegisterGroup = "register-group"
	elemEnumerator    = "enumerator"
	elemBitfield      = "bitfield"

	attrMemspace = "memspace"
	attrName     = "name"
	attrOffset   = "offset"
	attrMask     = "mask"
	attrText     = "text"
	attrCaption  = "caption"
	attrEnum     = "enum"
	attrVal      = "val"
	attrValue    = "value"
	attrInitval  = "initval"
)

// Element names accepted for byte and enumeration value children.
var (
	byteElements  = []string{"reg", "register"}
	valueElements = []string{"enum", "value"}
)

// Config holds the parser configuration.
type Config struct {
	// Logger receives diagnostics such as unresolved enumerators (optional)
	Logger logging.Logger
}

// Option is a functional option for configuring the Parser.
type Option func(*Config)

// WithLogger sets the logger used for parse diagnostics.
//
// Example:
//
//	p := atdf.NewParser(atdf.WithLogger(logger))
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Parser turns part description documents into descriptors.
//
// Parser holds no per-document state and is safe for concurrent use.
type Parser struct {
	config Config
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Parser{config: cfg}
}

// ParseFile reads the document at path and parses both memory kinds.
// The device id is taken from the document, or from the file name when
// the document does not state it.
//
// Example:
//
//	dev, err := atdf.ParseFile("ATmega328P.xml")
func ParseFile(path string, opts ...Option) (*descriptor.Device, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	id := DeviceID(doc)
	if id == "" {
		id = DeviceIDFromPath(path)
	}
	return NewParser(opts...).Parse(id, doc)
}

// DeviceID returns the lower-cased device name declared by the document,
// or "" if it declares none.
func DeviceID(doc *Node) string {
	dev := doc.Find(func(n *Node) bool {
		if n.Name != "device" {
			return false
		}
		_, ok := n.Attr(attrName)
		return ok
	})
	if dev != nil {
		name, _ := dev.Attr(attrName)
		return strings.ToLower(strings.TrimSpace(name))
	}
	// Older documents: <ADMIN><PART_NAME>ATmega328P</PART_NAME></ADMIN>
	if part := doc.Find(func(n *Node) bool { return n.Name == "PART_NAME" }); part != nil && part.Text != "" {
		return strings.ToLower(part.Text)
	}
	return ""
}

// DeviceIDFromPath derives a device id from a file name: base name without
// extension, lower-cased.
func DeviceIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Parse builds the complete descriptor, fuse and lock bytes, of one device.
//
// A kind whose registers element is absent yields zero bytes of that kind.
func (p *Parser) Parse(deviceID string, doc *Node) (*descriptor.Device, error) {
	if doc == nil {
		return nil, fmt.Errorf("%s: document cannot be nil", deviceID)
	}

	dev := &descriptor.Device{ID: deviceID, FormatVersion: descfile.CurrentFormatVersion}
	for _, kind := range descriptor.Kinds {
		bytes, err := p.parseBytes(deviceID, kind, doc)
		if err != nil {
			return nil, err
		}
		if kind == descriptor.KindLock {
			dev.Locks = bytes
		} else {
			dev.Fuses = bytes
		}
	}

	if err := dev.Validate(); err != nil {
		return nil, &MalformedError{Device: deviceID, Element: elemRegisters, Reason: err.Error()}
	}

	p.logDebug("parsed descriptor",
		"device", deviceID,
		"fuse_bytes", len(dev.Fuses),
		"lock_bytes", len(dev.Locks),
	)
	return dev, nil
}

// ParseKind builds a descriptor carrying only the bytes of kind.
func (p *Parser) ParseKind(deviceID string, kind descriptor.Kind, doc *Node) (*descriptor.Device, error) {
	dev, err := p.Parse(deviceID, doc)
	if err != nil {
		return nil, err
	}
	return dev.Only(kind), nil
}

// byteNode is a byte placeholder discovered in the registers element.
type byteNode struct {
	order  int
	offset int
	name   string
	node   *Node
}

// parseBytes locates the registers element of kind and builds its bytes,
// ordered and indexed by offset.
func (p *Parser) parseBytes(deviceID string, kind descriptor.Kind, doc *Node) ([]descriptor.Byte, error) {
	regs := findRegisters(doc, kind)
	if regs == nil {
		p.logDebug("no registers for memory kind", "device", deviceID, "kind", kind.String())
		return nil, nil
	}

	enums, err := collectEnumerators(deviceID, regs)
	if err != nil {
		return nil, err
	}

	var nodes []byteNode
	for i, n := range regs.ChildrenNamed(byteElements...) {
		name, ok := n.Attr(attrName)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("%s #%d of %s", n.Name, i, kind),
				Attr:    attrName,
				Reason:  "is missing",
			}
		}
		rawOffset, ok := n.Attr(attrOffset)
		if !ok {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("%s %q", n.Name, name),
				Attr:    attrOffset,
				Reason:  "is missing",
			}
		}
		offset, err := parseNumber(rawOffset)
		if err != nil || offset < 0 || offset >= descriptor.MaxBytesPerKind {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("%s %q", n.Name, name),
				Attr:    attrOffset,
				Reason:  fmt.Sprintf("has invalid value %q", rawOffset),
			}
		}
		nodes = append(nodes, byteNode{order: i, offset: offset, name: name, node: n})
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].offset < nodes[j].offset })

	bytes := make([]descriptor.Byte, 0, len(nodes))
	for _, bn := range nodes {
		if bn.offset < len(bytes) {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("%s %q", bn.node.Name, bn.name),
				Attr:    attrOffset,
				Reason:  fmt.Sprintf("duplicates offset %d of %q", bn.offset, bytes[bn.offset].Name),
			}
		}
		// Gaps are filled so indices stay dense.
		for len(bytes) < bn.offset {
			idx := len(bytes)
			p.logWarn("gap in byte offsets, inserting placeholder",
				"device", deviceID, "kind", kind.String(), "index", idx)
			bytes = append(bytes, descriptor.Byte{
				Kind:    kind,
				Name:    fmt.Sprintf("RESERVED%d", idx),
				Index:   idx,
				Default: descriptor.Unset,
			})
		}

		fields, err := p.parseBitfields(deviceID, bn, enums)
		if err != nil {
			return nil, err
		}

		bytes = append(bytes, descriptor.Byte{
			Kind:      kind,
			Name:      bn.name,
			Index:     bn.offset,
			Default:   descriptor.Unset,
			Bitfields: fields,
		})
	}

	switch kind {
	case descriptor.KindLock:
		// No source states lock defaults reliably: unlocked.
		for i := range bytes {
			bytes[i].Default = descriptor.AllBitsSet
		}
	default:
		p.applyDefaults(deviceID, doc, nodes, bytes)
	}

	return bytes, nil
}

// parseBitfields builds the bitfields of one byte in document order.
func (p *Parser) parseBitfields(deviceID string, bn byteNode, enums map[string][]descriptor.EnumValue) ([]descriptor.Bitfield, error) {
	children := bn.node.ChildrenNamed(elemBitfield)
	fields := make([]descriptor.Bitfield, 0, len(children))

	for i, n := range children {
		name, ok := n.Attr(attrName)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("bitfield #%d of %q", i, bn.name),
				Attr:    attrName,
				Reason:  "is missing",
			}
		}
		rawMask, ok := n.Attr(attrMask)
		if !ok {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("bitfield %s.%s", bn.name, name),
				Attr:    attrMask,
				Reason:  "is missing",
			}
		}
		mask, err := parseNumber(rawMask)
		if err != nil || mask <= 0 || mask > 0xFF {
			return nil, &MalformedError{
				Device:  deviceID,
				Element: fmt.Sprintf("bitfield %s.%s", bn.name, name),
				Attr:    attrMask,
				Reason:  fmt.Sprintf("has invalid value %q", rawMask),
			}
		}

		field := descriptor.Bitfield{
			Name:  name,
			Label: label(n),
			Mask:  uint8(mask),
		}

		if ref, ok := n.Attr(attrEnum); ok && ref != "" {
			values, found := enums[ref]
			if !found {
				p.logWarn("unresolved enumerator reference",
					"device", deviceID, "bitfield", bn.name+"."+name, "enumerator", ref)
			} else {
				field.Enum = values
			}
		}

		fields = append(fields, field)
	}
	return fields, nil
}

// findRegisters returns the first registers element whose memspace matches
// kind.
func findRegisters(doc *Node, kind descriptor.Kind) *Node {
	want := kind.Memspace()
	return doc.Find(func(n *Node) bool {
		if n.Name != elemRegisters && n.Name != elemRegisterGroup {
			return false
		}
		ms, ok := n.Attr(attrMemspace)
		return ok && strings.EqualFold(ms, want)
	})
}

// collectEnumerators maps enumerator names to their values, from the
// enumerator elements that are siblings of regs.
func collectEnumerators(deviceID string, regs *Node) (map[string][]descriptor.EnumValue, error) {
	enums := make(map[string][]descriptor.EnumValue)
	parent := regs.Parent()
	if parent == nil {
		return enums, nil
	}

	for _, en := range parent.ChildrenNamed(elemEnumerator) {
		name, ok := en.Attr(attrName)
		if !ok || name == "" {
			continue
		}
		var values []descriptor.EnumValue
		for _, v := range en.ChildrenNamed(valueElements...) {
			raw, ok := v.Attr(attrVal)
			if !ok {
				raw, ok = v.Attr(attrValue)
			}
			if !ok {
				continue
			}
			num, err := parseNumber(raw)
			if err != nil {
				return nil, &MalformedError{
					Device:  deviceID,
					Element: fmt.Sprintf("enumerator %q", name),
					Attr:    attrVal,
					Reason:  fmt.Sprintf("has invalid value %q", raw),
				}
			}
			values = append(values, descriptor.EnumValue{Value: num, Label: label(v)})
		}
		enums[name] = values
	}
	return enums, nil
}

// label returns the display text of an element: text, then caption, then
// name.
func label(n *Node) string {
	for _, attr := range []string{attrText, attrCaption, attrName} {
		if v, ok := n.Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

// parseNumber parses "0x"-prefixed hex or decimal.
func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// logDebug logs a debug message if a logger is configured.
func (p *Parser) logDebug(msg string, keysAndValues ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is configured.
func (p *Parser) logWarn(msg string, keysAndValues ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Warn(msg, keysAndValues...)
	}
}
