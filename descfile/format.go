package descfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/moffa90/go-fusebits/descriptor"
)

// envelope is the outer, version-independent layer of a snapshot.
type envelope struct {
	Magic  string `cbor:"1,keyasint"`
	Format int    `cbor:"2,keyasint"`
	Kind   string `cbor:"3,keyasint"`
	Device string `cbor:"4,keyasint"`
	Digest []byte `cbor:"5,keyasint"`
	Body   []byte `cbor:"6,keyasint"`
}

// body is the compressed payload. Fields 3 and 4 of byteRecord were
// written for fuse bytes only before FormatV2.
type body struct {
	Bytes []byteRecord `cbor:"1,keyasint"`
}

type byteRecord struct {
	Name       string           `cbor:"1,keyasint"`
	Index      int              `cbor:"2,keyasint"`
	HasDefault bool             `cbor:"3,keyasint,omitempty"`
	Default    uint8            `cbor:"4,keyasint,omitempty"`
	Bitfields  []bitfieldRecord `cbor:"5,keyasint"`
}

type bitfieldRecord struct {
	Name  string       `cbor:"1,keyasint"`
	Label string       `cbor:"2,keyasint,omitempty"`
	Mask  uint8        `cbor:"3,keyasint"`
	Enum  []enumRecord `cbor:"4,keyasint,omitempty"`
}

type enumRecord struct {
	Value int    `cbor:"1,keyasint"`
	Label string `cbor:"2,keyasint"`
}

// Snapshot is a decoded descriptor file.
type Snapshot struct {
	// Kind is the memory kind the file describes
	Kind descriptor.Kind

	// SourceFormat is the format version the file was written in,
	// before any migration
	SourceFormat int

	// Device holds the bytes of Kind only
	Device *descriptor.Device
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("descfile: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 4096,
	}.DecMode()
	if err != nil {
		panic("descfile: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("descfile: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBodySize))
	if err != nil {
		panic("descfile: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes the bytes of kind of dev into a snapshot.
// The descriptor is validated first.
func Marshal(dev *descriptor.Device, kind descriptor.Kind) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid memory kind %d", int(kind))
	}
	if err := dev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	raw, err := encMode.Marshal(body{Bytes: toRecords(dev.Bytes(kind))})
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", dev.ID, err)
	}
	compressed := zstdEncoder.EncodeAll(raw, nil)
	digest := blake3.Sum256(compressed)

	data, err := encMode.Marshal(envelope{
		Magic:  Magic,
		Format: CurrentFormatVersion,
		Kind:   kind.String(),
		Device: dev.ID,
		Digest: digest[:],
		Body:   compressed,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode envelope: %w", dev.ID, err)
	}
	return data, nil
}

// Encode writes the snapshot of the bytes of kind of dev to w.
func Encode(w io.Writer, dev *descriptor.Device, kind descriptor.Kind) error {
	data, err := Marshal(dev, kind)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Unmarshal decodes a snapshot, migrating older formats to the current one.
// The returned device carries FormatVersion CurrentFormatVersion and has
// been validated.
func Unmarshal(data []byte) (*Snapshot, error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("snapshot of %d bytes exceeds maximum %d", len(data), MaxFileSize)
	}

	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if env.Magic != Magic {
		return nil, ErrBadMagic
	}
	if env.Format < FormatV1 || env.Format > CurrentFormatVersion {
		return nil, &VersionError{Version: env.Format}
	}
	if env.Device == "" {
		return nil, fmt.Errorf("snapshot has empty device id")
	}
	kind, err := descriptor.ParseKind(env.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.Device, err)
	}

	digest := blake3.Sum256(env.Body)
	if !bytes.Equal(digest[:], env.Digest) {
		return nil, fmt.Errorf("%s: %w", env.Device, ErrChecksum)
	}

	raw, err := zstdDecoder.DecodeAll(env.Body, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: decompress body: %w", env.Device, err)
	}
	var b body
	if err := decMode.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%s: decode body: %w", env.Device, err)
	}

	if err := applyMigrations(&b, kind, env.Format); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Device, err)
	}

	dev := &descriptor.Device{ID: env.Device, FormatVersion: CurrentFormatVersion}
	bs := fromRecords(b.Bytes, kind)
	if kind == descriptor.KindLock {
		dev.Locks = bs
	} else {
		dev.Fuses = bs
	}
	if err := dev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	return &Snapshot{Kind: kind, SourceFormat: env.Format, Device: dev}, nil
}

// Decode reads a snapshot from r. See Unmarshal.
func Decode(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Unmarshal(data)
}

func toRecords(bs []descriptor.Byte) []byteRecord {
	out := make([]byteRecord, len(bs))
	for i, b := range bs {
		rec := byteRecord{
			Name:       b.Name,
			Index:      b.Index,
			HasDefault: b.HasDefault(),
			Bitfields:  make([]bitfieldRecord, len(b.Bitfields)),
		}
		if rec.HasDefault {
			rec.Default = uint8(b.Default)
		}
		for j, f := range b.Bitfields {
			fr := bitfieldRecord{Name: f.Name, Label: f.Label, Mask: f.Mask}
			for _, e := range f.Enum {
				fr.Enum = append(fr.Enum, enumRecord{Value: e.Value, Label: e.Label})
			}
			rec.Bitfields[j] = fr
		}
		out[i] = rec
	}
	return out
}

func fromRecords(recs []byteRecord, kind descriptor.Kind) []descriptor.Byte {
	if len(recs) == 0 {
		return nil
	}
	out := make([]descriptor.Byte, len(recs))
	for i, rec := range recs {
		b := descriptor.Byte{
			Kind:    kind,
			Name:    rec.Name,
			Index:   rec.Index,
			Default: descriptor.Unset,
		}
		if rec.HasDefault {
			b.Default = int(rec.Default)
		}
		for _, fr := range rec.Bitfields {
			f := descriptor.Bitfield{Name: fr.Name, Label: fr.Label, Mask: fr.Mask}
			for _, e := range fr.Enum {
				f.Enum = append(f.Enum, descriptor.EnumValue{Value: e.Value, Label: e.Label})
			}
			b.Bitfields = append(b.Bitfields, f)
		}
		out[i] = b
	}
	return out
}
