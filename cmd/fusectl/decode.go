package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fusebits/bytevalues"
	"github.com/moffa90/go-fusebits/descriptor"
)

func init() {
	rootCmd.AddCommand(newDecodeCmd())
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <mcu> <byte>...",
		Short: "Decode raw fuse or lock bytes into bitfield values",
		Long: `The decode command splits raw byte values into the named bitfields of the
device. Bytes are given in index order as hex; "-" marks an unset byte and
missing trailing bytes are unset.

Example:
  fusectl decode atmega328p 62 D9 FF
  fusectl decode atmega328p 0xFF - 0xFD
  fusectl decode atmega328p --kind lock 3F`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// "--" never reaches args; reject it rather than shift the bytes.
			if cmd.ArgsLenAtDash() >= 0 {
				return fmt.Errorf("\"--\" ends flag parsing; use %q for an unset byte", unsetMarker)
			}
			return runDecode(args)
		},
	}
}

// unsetMarker stands for an unset byte on the command line.
const unsetMarker = "-"

type decodedField struct {
	Byte  string `json:"byte"`
	Name  string `json:"name"`
	Value *int   `json:"value"`
	Label string `json:"label,omitempty"`
}

func runDecode(args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	vals, err := bytevalues.New(e.kind, args[0], e.repo())
	if err != nil {
		return err
	}

	raw := args[1:]
	if len(raw) > vals.Count() {
		return fmt.Errorf("%s has %d %s bytes, got %d", args[0], vals.Count(), e.kind, len(raw))
	}
	for i, s := range raw {
		v, err := parseRawByte(s)
		if err != nil {
			return err
		}
		if err := vals.SetRaw(i, v); err != nil {
			return err
		}
	}

	fields, err := describeFields(vals)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(fields)
	}
	printFields(fields)
	return nil
}

// describeFields reads every bitfield of vals.
func describeFields(vals *bytevalues.Values) ([]decodedField, error) {
	fields, err := vals.Bitfields()
	if err != nil {
		return nil, err
	}
	out := make([]decodedField, 0, len(fields))
	for _, f := range fields {
		df := decodedField{Byte: f.ByteName, Name: f.Name}
		v, err := vals.Named(f.QualifiedName())
		if err != nil {
			return nil, err
		}
		if v != descriptor.Unset {
			df.Value = &v
			df.Label, _ = f.EnumLabel(v)
		}
		out = append(out, df)
	}
	return out, nil
}

func printFields(fields []decodedField) {
	for _, f := range fields {
		value := "unset"
		if f.Value != nil {
			value = fmt.Sprintf("0x%X", *f.Value)
		}
		if f.Label != "" {
			value += "  " + f.Label
		}
		printInfo("%-18s %s\n", f.Byte+"."+f.Name, value)
	}
}

// parseRawByte parses a hex byte or the unset marker.
func parseRawByte(s string) (int, error) {
	if s == unsetMarker {
		return descriptor.Unset, nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(digits, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: want hex 00-FF or %s", s, unsetMarker)
	}
	return int(v), nil
}
