package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fusebits/descriptor"
)

func init() {
	rootCmd.AddCommand(newShowCmd())
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <mcu>",
		Short: "Show the fuse or lock byte layout of a device",
		Long: `The show command prints every byte of the selected memory kind with its
default value and bitfields.

Example:
  fusectl show atmega328p
  fusectl show atmega328p --kind lock
  fusectl show atmega328p --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args)
		},
	}
}

type showOutput struct {
	Device        string     `json:"device"`
	Kind          string     `json:"kind"`
	FormatVersion int        `json:"format_version"`
	Bytes         []showByte `json:"bytes"`
}

type showByte struct {
	Name      string         `json:"name"`
	Index     int            `json:"index"`
	Default   *int           `json:"default"`
	Bitfields []showBitfield `json:"bitfields"`
}

type showBitfield struct {
	Name     string     `json:"name"`
	Label    string     `json:"label"`
	Mask     int        `json:"mask"`
	MaxValue int        `json:"max_value"`
	Enum     []showEnum `json:"enum,omitempty"`
}

type showEnum struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

func runShow(args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	dev, err := e.repo().Lookup(args[0])
	if err != nil {
		if descriptor.IsNotFound(err) {
			return fmt.Errorf("no %s descriptor for %q", e.kind, args[0])
		}
		return err
	}

	out := toShowOutput(dev, e.kind)
	if jsonOut {
		return printJSON(out)
	}

	printInfo("%s (%s bytes: %d)\n", out.Device, out.Kind, len(out.Bytes))
	for _, b := range out.Bytes {
		def := "unset"
		if b.Default != nil {
			def = fmt.Sprintf("0x%02X", *b.Default)
		}
		printInfo("\n[%d] %s  default=%s\n", b.Index, b.Name, def)
		for _, f := range b.Bitfields {
			printInfo("  %-10s mask=0x%02X  max=%-3d %s\n", f.Name, f.Mask, f.MaxValue, f.Label)
			for _, en := range f.Enum {
				printInfo("      0x%X  %s\n", en.Value, en.Label)
			}
		}
	}
	return nil
}

func toShowOutput(dev *descriptor.Device, kind descriptor.Kind) showOutput {
	out := showOutput{
		Device:        dev.ID,
		Kind:          kind.String(),
		FormatVersion: dev.FormatVersion,
		Bytes:         []showByte{},
	}
	for _, b := range dev.Bytes(kind) {
		sb := showByte{Name: b.Name, Index: b.Index, Bitfields: []showBitfield{}}
		if b.HasDefault() {
			d := b.Default
			sb.Default = &d
		}
		for _, f := range b.Bitfields {
			sf := showBitfield{Name: f.Name, Label: f.Label, Mask: int(f.Mask), MaxValue: f.MaxValue()}
			for _, en := range f.Enum {
				sf.Enum = append(sf.Enum, showEnum{Value: en.Value, Label: en.Label})
			}
			sb.Bitfields = append(sb.Bitfields, sf)
		}
		out.Bytes = append(out.Bytes, sb)
	}
	return out
}
