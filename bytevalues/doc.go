// Package bytevalues reads and writes the fuse or lock bytes of a device by
// bitfield name.
//
// A Values container holds one raw value per byte, each either
// descriptor.Unset or 0-255. Named access translates between a bitfield's
// normalized value (0 to 2^width-1) and its bits in the raw byte using the
// masks of the device's descriptor:
//
//	vals, err := bytevalues.New(descriptor.KindFuse, "atmega328p", fuses)
//	if err != nil {
//	    return err
//	}
//	vals.SetNamed("CKSEL", 0x2) // LOW byte becomes 0xF2
//	sut, _ := vals.Named("SUT") // 0x3
//
// Setting a field of an unset byte treats the byte as 0xFF first, so the
// remaining fields of that byte read back as their maximum value.
//
// Out-of-range indices and values and unknown bitfield names are returned
// as *InvalidArgumentError and never clamped.
package bytevalues
