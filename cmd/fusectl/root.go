package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-fusebits/atdf"
	"github.com/moffa90/go-fusebits/config"
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/logging"
	"github.com/moffa90/go-fusebits/repository"
)

var (
	// Global flags
	configPath string
	kindName   string
	verbose    bool
	quiet      bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "fusectl",
	Short: "Inspect AVR fuse and lock byte descriptors and value files",
	Long: `fusectl manages the fuse and lock byte descriptors of AVR microcontrollers
and edits fuse/lock value files by bitfield name.

Descriptors are looked up in the user override directory, then the built-in
directory, and finally parsed from part description documents when a source
directory is configured.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.PlatformConfigPath(), "Configuration file (TOML or YAML)")
	rootCmd.PersistentFlags().StringVarP(&kindName, "kind", "k", "fuse", "Memory kind: fuse or lock")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// env is the per-invocation state built from configuration.
type env struct {
	cfg    *config.Config
	logger logging.Logger
	kind   descriptor.Kind
	repos  *repository.Set
}

// openEnv loads the configuration and builds both repositories.
func openEnv() (*env, error) {
	kind, err := descriptor.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := cfg.NewLogger(os.Stderr, "fusectl")
	if err != nil {
		return nil, err
	}

	var source repository.Source
	if cfg.Storage.SourceDir != "" {
		source = atdf.NewDirSource(cfg.Storage.SourceDir, atdf.WithLogger(logger))
	}
	repos := repository.NewSet(func(k descriptor.Kind) *repository.Repository {
		ext := cfg.Storage.FuseExt
		if k == descriptor.KindLock {
			ext = cfg.Storage.LockExt
		}
		opts := []repository.Option{
			repository.WithOverride(repository.NewDirStore(cfg.Storage.OverrideDir, k, ext)),
			repository.WithLogger(logger),
		}
		if cfg.Storage.BuiltinDir != "" {
			opts = append(opts, repository.WithBuiltin(repository.NewDirStore(cfg.Storage.BuiltinDir, k, ext)))
		}
		if source != nil {
			opts = append(opts, repository.WithSource(source))
		}
		return repository.New(k, opts...)
	})

	printVerbose("Override: %s\nBuilt-in: %s\n", cfg.Storage.OverrideDir, cfg.Storage.BuiltinDir)
	return &env{cfg: cfg, logger: logger, kind: kind, repos: repos}, nil
}

// repo returns the repository of the selected kind.
func (e *env) repo() *repository.Repository {
	return e.repos.For(e.kind)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printWarning prints a warning to stderr
func printWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
