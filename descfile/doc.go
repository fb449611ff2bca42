// Package descfile implements the persisted snapshot format of fuse and lock
// byte descriptors.
//
// # File Format
//
// Each file holds the bytes of one memory kind of one device and is named
// after the device id:
//
//	atmega328p.fusedesc
//	atmega328p.lockdesc
//
// The file is a CBOR map (deterministic encoding, integer keys):
//
//	1: magic   "FBDS"
//	2: format  snapshot format version
//	3: kind    "fuse" or "lock"
//	4: device  device id
//	5: digest  BLAKE3-256 of body
//	6: body    zstd-compressed CBOR record of the byte descriptors
//
// The envelope stays readable across format versions; only the body layout
// evolves. Older bodies are migrated on decode, newer ones are rejected
// with ErrUnsupportedVersion.
//
// # Usage
//
//	var buf bytes.Buffer
//	if err := descfile.Encode(&buf, dev, descriptor.KindFuse); err != nil {
//	    return err
//	}
//	snap, err := descfile.Decode(&buf)
//	// snap.Device.Fuses holds the decoded bytes
//
// # Error Handling
//
// Decode returns ErrBadMagic, ErrUnsupportedVersion or ErrChecksum for
// structurally unusable files and wraps CBOR and zstd failures with context.
package descfile
