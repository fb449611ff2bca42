package descfile

import (
	"github.com/moffa90/go-fusebits/descriptor"
)

// Magic identifies a descriptor snapshot.
const Magic = "FBDS"

// Snapshot format versions.
const (
	// FormatV1 bodies carry no lock byte defaults.
	FormatV1 = 1

	// FormatV2 bodies carry an explicit default for every byte.
	FormatV2 = 2

	// CurrentFormatVersion is the version written by Encode.
	CurrentFormatVersion = FormatV2
)

// File name extensions, one per memory kind.
const (
	FuseExt = ".fusedesc"
	LockExt = ".lockdesc"
)

// MaxFileSize bounds the size of a snapshot accepted by Decode.
const MaxFileSize = 1 << 20

// maxBodySize bounds the decompressed body.
const maxBodySize = 4 << 20

// Ext returns the default file extension for kind.
func Ext(kind descriptor.Kind) string {
	if kind == descriptor.KindLock {
		return LockExt
	}
	return FuseExt
}

// FileName returns the snapshot file name of deviceID using ext.
func FileName(deviceID, ext string) string {
	return deviceID + ext
}
