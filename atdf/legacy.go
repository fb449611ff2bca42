package atdf

import (
	"strconv"
	"strings"

	"github.com/moffa90/go-fusebits/descriptor"
)

// Element names of the older fuse description shape.
const (
	elemLegacyFuse    = "FUSE"
	elemLegacyList    = "LIST"
	elemLegacyDefault = "DEFAULT"
	legacyBitPrefix   = "FUSE"

	// legacyMaxBytes is the number of byte positions the old shape can
	// describe (LOW, HIGH, EXTENDED).
	legacyMaxBytes = 3
)

// applyDefaults fills fuse byte defaults. The legacy FUSE element wins;
// bytes it does not describe fall back to an initval attribute on the reg
// element, and otherwise stay Unset.
func (p *Parser) applyDefaults(deviceID string, doc *Node, nodes []byteNode, bytes []descriptor.Byte) {
	legacy := legacyDefaults(doc)

	for _, bn := range nodes {
		idx := bn.offset
		if v, ok := legacy[idx]; ok {
			bytes[idx].Default = v
			continue
		}
		if raw, ok := bn.node.Attr(attrInitval); ok {
			v, err := parseNumber(raw)
			if err == nil && v <= descriptor.AllBitsSet {
				bytes[idx].Default = v
				continue
			}
			p.logWarn("ignoring invalid initval", "device", deviceID, "byte", bn.name, "initval", raw)
		}
	}

	for idx := range legacy {
		if idx >= len(bytes) {
			p.logWarn("legacy default for unknown fuse byte",
				"device", deviceID, "index", idx)
		}
	}
}

// legacyDefaults derives default values, keyed by byte index, from the
// <FUSE><LIST>[A:B:C]</LIST><A>…</A></FUSE> shape. It returns an empty map
// when the document has no such element.
func legacyDefaults(doc *Node) map[int]int {
	out := make(map[int]int)

	fuse := doc.Find(func(n *Node) bool {
		return n.Name == elemLegacyFuse && n.Child(elemLegacyList) != nil
	})
	if fuse == nil {
		return out
	}

	names := parseLegacyList(fuse.Child(elemLegacyList).Text)
	for idx, name := range names {
		if idx >= legacyMaxBytes {
			break
		}
		byteNode := fuse.Child(name)
		if byteNode == nil {
			continue
		}
		out[idx] = legacyByteDefault(byteNode)
	}
	return out
}

// legacyByteDefault starts from all bits set and clears each bit whose
// FUSE<n> entry declares DEFAULT 0.
func legacyByteDefault(n *Node) int {
	value := descriptor.AllBitsSet
	for _, c := range n.Children {
		bit, ok := legacyBitNumber(c.Name)
		if !ok {
			continue
		}
		def := c.Child(elemLegacyDefault)
		if def == nil {
			continue
		}
		if strings.TrimSpace(def.Text) == "0" {
			value &^= 1 << bit
		}
	}
	return value
}

// legacyBitNumber extracts n from an element named FUSE<n>, 0 <= n <= 7.
func legacyBitNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, legacyBitPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(legacyBitPrefix):])
	if err != nil || n < 0 || n > 7 {
		return 0, false
	}
	return n, true
}

// parseLegacyList splits "[LOW:HIGH:EXTENDED]" into its names.
func parseLegacyList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
