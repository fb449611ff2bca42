package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fusebits/atdf"
	"github.com/moffa90/go-fusebits/descriptor"
)

func init() {
	rootCmd.AddCommand(newImportCmd())
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <xml>...",
		Short: "Parse part description documents into the override directory",
		Long: `The import command parses each part description document and stores the
fuse and lock descriptors of the device in the override directory. A file that
fails to parse or store is reported and the remaining files are still imported.

Example:
  fusectl import ATmega328P.xml ATtiny13.xml
  fusectl import /opt/atdf/*.xml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args)
		},
	}
}

func runImport(paths []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		printVerbose("Parsing %s\n", path)
		dev, err := atdf.ParseFile(path, atdf.WithLogger(e.logger))
		if err != nil {
			printError("%s: %v\n", path, err)
			failed++
			continue
		}
		if errs := e.repos.Import([]*descriptor.Device{dev}); len(errs) > 0 {
			for _, err := range errs {
				printError("%s: %v\n", path, err)
			}
			failed++
			continue
		}
		printInfo("%s: %d fuse, %d lock bytes\n", dev.ID, dev.ByteCount(descriptor.KindFuse), dev.ByteCount(descriptor.KindLock))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(paths))
	}
	return nil
}

// sourceIDs lists the devices of a directory of part description documents.
func sourceIDs(dir string) ([]string, error) {
	return atdf.NewDirSource(dir).DeviceIDs()
}
