// Package descriptortest provides descriptor fixtures shared by the tests of
// the packages built on descriptor.
//
// Every call returns a fresh value, so tests may mutate the result.
package descriptortest

import "github.com/moffa90/go-fusebits/descriptor"

// ATmega328P returns a descriptor with three fuse bytes and one lock byte,
// laid out like the real part.
func ATmega328P() *descriptor.Device {
	return &descriptor.Device{
		ID: "atmega328p",
		Fuses: []descriptor.Byte{
			{
				Kind: descriptor.KindFuse, Name: "LOW", Index: 0, Default: 0x62,
				Bitfields: []descriptor.Bitfield{
					{Name: "CKSEL", Label: "Clock source", Mask: 0x0F, Enum: []descriptor.EnumValue{
						{Value: 0x0, Label: "Ext. Clock"},
						{Value: 0x2, Label: "Int. RC Osc. 8 MHz"},
						{Value: 0xF, Label: "Ext. Crystal Osc. 8.0- MHz"},
					}},
					{Name: "SUT", Label: "Start-up time", Mask: 0x30},
					{Name: "CKOUT", Label: "Clock output on PORTB0", Mask: 0x40},
					{Name: "CKDIV8", Label: "Divide clock by 8 internally", Mask: 0x80},
				},
			},
			{
				Kind: descriptor.KindFuse, Name: "HIGH", Index: 1, Default: 0xD9,
				Bitfields: []descriptor.Bitfield{
					{Name: "BOOTRST", Label: "Boot Reset vector Enabled", Mask: 0x01},
					{Name: "BOOTSZ", Label: "Boot Flash section size", Mask: 0x06},
					{Name: "EESAVE", Label: "Preserve EEPROM through the Chip Erase cycle", Mask: 0x08},
					{Name: "WDTON", Label: "Watch-dog Timer always on", Mask: 0x10},
					{Name: "SPIEN", Label: "Serial program downloading (SPI) enabled", Mask: 0x20},
					{Name: "DWEN", Label: "Debug Wire enable", Mask: 0x40},
					{Name: "RSTDISBL", Label: "Reset Disabled", Mask: 0x80},
				},
			},
			{
				Kind: descriptor.KindFuse, Name: "EXTENDED", Index: 2, Default: 0xFF,
				Bitfields: []descriptor.Bitfield{
					{Name: "BODLEVEL", Label: "Brown-out Detector trigger level", Mask: 0x07, Enum: []descriptor.EnumValue{
						{Value: 0x4, Label: "Brown-out detection at VCC=4.3 V"},
						{Value: 0x5, Label: "Brown-out detection at VCC=2.7 V"},
						{Value: 0x6, Label: "Brown-out detection at VCC=1.8 V"},
						{Value: 0x7, Label: "Brown-out detection disabled"},
					}},
				},
			},
		},
		Locks: []descriptor.Byte{
			{
				Kind: descriptor.KindLock, Name: "LOCKBIT", Index: 0, Default: 0xFF,
				Bitfields: []descriptor.Bitfield{
					{Name: "LB", Label: "Memory Lock", Mask: 0x03},
					{Name: "BLB0", Label: "Boot Loader Protection Mode 0", Mask: 0x0C},
					{Name: "BLB1", Label: "Boot Loader Protection Mode 1", Mask: 0x30},
				},
			},
		},
	}
}

// ATmega328 returns the non-P variant. Its layout is identical to
// ATmega328P but some labels differ, so the two are compatible.
func ATmega328() *descriptor.Device {
	d := ATmega328P()
	d.ID = "atmega328"
	d.Fuses[0].Bitfields[0].Label = "Select Clock Source"
	d.Fuses[0].Bitfields[0].Enum = nil
	return d
}

// ATtiny13 returns a descriptor with two fuse bytes whose fields differ
// from ATmega328P.
func ATtiny13() *descriptor.Device {
	return &descriptor.Device{
		ID: "attiny13",
		Fuses: []descriptor.Byte{
			{
				Kind: descriptor.KindFuse, Name: "LOW", Index: 0, Default: 0x6A,
				Bitfields: []descriptor.Bitfield{
					{Name: "CKSEL", Label: "Clock source", Mask: 0x03},
					{Name: "SUT", Label: "Start-up time", Mask: 0x0C},
					{Name: "CKDIV8", Label: "Divide clock by 8", Mask: 0x10},
					{Name: "WDTON", Label: "Watch-dog Timer always on", Mask: 0x20},
					{Name: "EESAVE", Label: "Preserve EEPROM", Mask: 0x40},
					{Name: "SPIEN", Label: "Serial program downloading (SPI) enabled", Mask: 0x80},
				},
			},
			{
				Kind: descriptor.KindFuse, Name: "HIGH", Index: 1, Default: 0xFF,
				Bitfields: []descriptor.Bitfield{
					{Name: "RSTDISBL", Label: "Reset Disabled", Mask: 0x01},
					{Name: "BODLEVEL", Label: "Brown-out Detector trigger level", Mask: 0x06},
					{Name: "DWEN", Label: "Debug Wire enable", Mask: 0x08},
					{Name: "SELFPRGEN", Label: "Self Programming enable", Mask: 0x10},
				},
			},
		},
		Locks: []descriptor.Byte{
			{
				Kind: descriptor.KindLock, Name: "LOCKBIT", Index: 0, Default: 0xFF,
				Bitfields: []descriptor.Bitfield{
					{Name: "LB", Label: "Memory Lock", Mask: 0x03},
				},
			},
		},
	}
}

// NoFuses returns a device without any configuration bytes.
func NoFuses(id string) *descriptor.Device {
	return &descriptor.Device{ID: id}
}
