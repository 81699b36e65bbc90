package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestCLICacheDirFromConfig(t *testing.T) {
	want := filepath.Join(t.TempDir(), "results")
	cfgPath := filepath.Join(t.TempDir(), "lineage.yaml")
	if err := os.WriteFile(cfgPath, []byte("cache:\n  dir: "+want+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, log.InfoLevel)
	c.configPath = cfgPath

	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, output, format string
		multi                 bool
		want                  string
	}{
		{"family.csv", "", "svg", false, "family.svg"},
		{"data/family.csv", "", "png", true, "data/family.png"},
		{"family.csv", "out.svg", "svg", false, "out.svg"},
		{"family.csv", "out/tree", "dot", true, "out/tree.dot"},
		{stdinName, "", "json", false, appName + ".json"},
	}

	for _, tt := range tests {
		got := outputPath(tt.input, tt.output, tt.format, tt.multi)
		if got != tt.want {
			t.Errorf("outputPath(%q, %q, %q, %v) = %q, want %q",
				tt.input, tt.output, tt.format, tt.multi, got, tt.want)
		}
	}
}

func TestReadInputStdin(t *testing.T) {
	data, err := readInput(stdinName, strings.NewReader("id,first\n"))
	if err != nil {
		t.Fatalf("readInput() error: %v", err)
	}
	if string(data) != "id,first\n" {
		t.Errorf("readInput() = %q", data)
	}
}
