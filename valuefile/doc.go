// Package valuefile reads and writes human-editable fuse and lock value
// files.
//
// A value file is line-oriented ISO-8859-1 text:
//
//	# fuse values
//	MCU=atmega328p
//	summary=16 MHz crystal, no bootloader
//	CKSEL=0xF
//	SUT=0x3
//	BOOTSZ=0x0
//
// The MCU line names the device and is mandatory. Every other key names a
// bitfield of that device and carries its normalized value in hex.
package valuefile
