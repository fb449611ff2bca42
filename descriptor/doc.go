// Package descriptor defines the structural model of a microcontroller's
// configuration byte memories: the fuse bytes and the lock byte.
//
// # Model
//
// A Device holds, per memory kind, an ordered list of Byte descriptors.
// Each Byte names one physical configuration byte and lists the Bitfields
// packed into it:
//
//	Device "atmega328p"
//	  Fuses[0] LOW       default 0x62
//	    CKSEL   mask 0x0F
//	    SUT     mask 0x30
//	    CKOUT   mask 0x40
//	    CKDIV8  mask 0x80
//	  Fuses[1] HIGH      default 0xD9
//	  ...
//	  Locks[0] LOCKBIT   default 0xFF
//
// A Bitfield may carry an enumeration that maps selected values to
// human-readable labels.
//
// Descriptors describe layout only. Actual captured byte values live in
// package bytevalues, which borrows a Device to interpret them.
//
// # Compatibility
//
// Two devices are compatible for a kind when they have the same number of
// bytes of that kind and each byte pair carries the same (name, mask)
// bitfields in the same order:
//
//	if !a.IsCompatibleWith(b, descriptor.KindFuse) {
//	    // values captured for a are not safely transferable to b
//	}
//
// Labels and enumerations are not compared.
//
// # Immutability
//
// A Device returned by a parser or repository is shared between callers and
// must be treated as read-only. Use Clone to obtain a private copy.
package descriptor
