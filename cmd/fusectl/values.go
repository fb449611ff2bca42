package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fusebits/bytevalues"
	"github.com/moffa90/go-fusebits/valuefile"
)

var (
	migrateOutput string
	migrateForce  bool
)

func init() {
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newSetCmd())

	migrate := newMigrateCmd()
	migrate.Flags().StringVarP(&migrateOutput, "output", "o", "", "Write the migrated file here instead of in place")
	migrate.Flags().BoolVar(&migrateForce, "force", false, "Migrate even when the byte layouts differ")
	rootCmd.AddCommand(migrate)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> [field]...",
		Short: "Print bitfield values from a value file",
		Long: `The get command reads a fuse or lock value file and prints the named
bitfields, or all of them when none are named.

Example:
  fusectl get board.fuses CKSEL SUT
  fusectl get board.fuses --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args)
		},
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <file> <field>=<value>...",
		Short: "Change bitfield values in a value file",
		Long: `The set command updates named bitfields of a value file in place. Values are
hex. Nothing is written when any assignment is invalid.

Example:
  fusectl set board.fuses CKSEL=0xF SUT=3
  fusectl set board.locks --kind lock LB=0`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(args)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <file> <mcu>",
		Short: "Move a value file to another device",
		Long: `The migrate command rebinds a value file to another device. Raw bytes are
copied index for index; bytes the new device lacks are dropped and new ones are
unset. Field values are not reinterpreted, so the command refuses to migrate
between devices with different byte layouts unless --force is given.

Example:
  fusectl migrate board.fuses atmega328
  fusectl migrate board.fuses attiny13 --force -o tiny.fuses`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(args)
		},
	}
}

func runGet(args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	f, err := readValueFile(e, args[0])
	if err != nil {
		return err
	}

	all, err := describeFields(f.Values)
	if err != nil {
		return err
	}
	fields := all
	if names := args[1:]; len(names) > 0 {
		fields = fields[:0:0]
		for _, name := range names {
			df, ok := findField(all, name)
			if !ok {
				return fmt.Errorf("%s has no %s bitfield %q", f.DeviceID, e.kind, name)
			}
			fields = append(fields, df)
		}
	}

	if jsonOut {
		return printJSON(fields)
	}
	printFields(fields)
	return nil
}

func runSet(args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	path := args[0]
	f, err := readValueFile(e, path)
	if err != nil {
		return err
	}

	for _, assignment := range args[1:] {
		name, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("invalid assignment %q: want FIELD=VALUE", assignment)
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X"), 16, 16)
		if err != nil {
			return fmt.Errorf("invalid value in %q: want hex", assignment)
		}
		if err := f.Values.SetNamed(name, int(v)); err != nil {
			return err
		}
		printVerbose("%s=0x%X\n", name, v)
	}

	if err := writeValueFile(path, f.Values); err != nil {
		return err
	}
	printInfo("Updated %s (%s)\n", path, f.Values)
	return nil
}

func runMigrate(args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	path, target := args[0], args[1]
	f, err := readValueFile(e, path)
	if err != nil {
		return err
	}

	compatible, err := f.Values.IsCompatibleWith(target)
	if err != nil {
		return err
	}
	if !compatible {
		if !migrateForce {
			return fmt.Errorf("%s and %s have different %s byte layouts; use --force to migrate anyway", f.DeviceID, target, e.kind)
		}
		printWarning("%s and %s have different %s byte layouts; values may change meaning\n", f.DeviceID, target, e.kind)
	}

	migrated, err := f.Values.MigrateTo(target)
	if err != nil {
		return err
	}
	out := path
	if migrateOutput != "" {
		out = migrateOutput
	}
	if err := writeValueFile(out, migrated); err != nil {
		return err
	}
	printInfo("Migrated %s from %s to %s\n", out, f.DeviceID, target)
	return nil
}

func readValueFile(e *env, path string) (*valuefile.File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open value file: %w", err)
	}
	defer fh.Close()

	f, err := valuefile.Read(fh, e.repo(), valuefile.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range f.Skipped {
		printWarning("%s:%d: ignored %q: %s\n", path, s.Line, s.Text, s.Reason)
	}
	return f, nil
}

// writeValueFile replaces path with the encoding of vals. An existing
// file keeps its permissions; a new one is created 0644.
func writeValueFile(path string, vals *bytevalues.Values) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create value file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create value file: %w", err)
	}

	if err := valuefile.Write(tmp, vals); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write value file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func findField(fields []decodedField, name string) (decodedField, bool) {
	for _, f := range fields {
		if f.Name == name || f.Byte+"."+f.Name == name {
			return f, true
		}
	}
	return decodedField{}, false
}
