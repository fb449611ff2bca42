package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moffa90/go-fusebits/config"
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/descriptor/descriptortest"
	"github.com/moffa90/go-fusebits/repository"
)

// testEnv describes the directories of a test configuration.
type testEnv struct {
	dir        string
	override   string
	builtin    string
	source     string
	configPath string
}

// setupTestEnv writes a configuration into a temporary directory, points
// the global flags at it and resets them. The built-in tier holds the
// atmega328 fixture; withSource enables parsing atdf/testdata.
func setupTestEnv(t *testing.T, withSource bool) *testEnv {
	t.Helper()
	for _, key := range []string{config.EnvOverrideDir, config.EnvBuiltinDir, config.EnvSourceDir, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	te := &testEnv{
		dir:      dir,
		override: filepath.Join(dir, "override"),
		builtin:  filepath.Join(dir, "builtin"),
	}
	if withSource {
		src, err := filepath.Abs(filepath.Join("..", "..", "atdf", "testdata"))
		if err != nil {
			t.Fatalf("resolve testdata: %v", err)
		}
		te.source = src
	}

	for _, kind := range descriptor.Kinds {
		if err := repository.NewDirStore(te.builtin, kind, "").Save(descriptortest.ATmega328()); err != nil {
			t.Fatalf("seed built-in tier: %v", err)
		}
	}

	cfg := "[storage]\n" +
		"override_dir = " + quote(te.override) + "\n" +
		"builtin_dir = " + quote(te.builtin) + "\n" +
		"source_dir = " + quote(te.source) + "\n" +
		"[logging]\nlevel = \"error\"\n"
	te.configPath = filepath.Join(dir, "config.toml")
	if err := os.WriteFile(te.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configPath = te.configPath
	kindName = "fuse"
	verbose = false
	quiet = false
	jsonOut = false
	listSources = false
	migrateOutput = ""
	migrateForce = false
	return te
}

// writeValueFixture writes a value file into the test directory.
func (te *testEnv) writeValueFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(te.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write value file: %v", err)
	}
	return path
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// testdataPath returns the path of a part description document.
func testdataPath(name string) string {
	return filepath.Join("..", "..", "atdf", "testdata", name)
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}

// executeCommand runs args through the root command, flag parsing included.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return captureOutput(t, rootCmd.Execute)
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
