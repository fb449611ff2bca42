package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fusebits/descfile"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fusectl %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		fmt.Printf("  descriptor format: v%d\n", descfile.CurrentFormatVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
