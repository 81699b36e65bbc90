// Package config loads Lineage settings from a TOML or YAML file.
//
// Config file locations (priority order):
//  1. $LINEAGE_CONFIG
//  2. ./lineage.toml, ./lineage.yaml, ./lineage.yml
//  3. $XDG_CONFIG_HOME/lineage/config.toml (or ~/.config/lineage/config.toml)
//
// The format is chosen by file extension. Missing settings fall back to
// [Default]; command-line flags override both.
//
//	[anchor]
//	require_parents = false
//
//	[propagate]
//	reconcile = "max"
//
//	[render]
//	formats = ["svg", "json"]
//	unassigned = "band"
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/lineage/pkg/errors"
	"github.com/matzehuels/lineage/pkg/family"
	"github.com/matzehuels/lineage/pkg/render/nodelink"
)

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = "LINEAGE_CONFIG"

// Output formats understood by the render command and API.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatDOT, FormatSVG, FormatPNG, FormatPDF, FormatJSON}

// Config is the complete application configuration.
type Config struct {
	Anchor    AnchorConfig    `toml:"anchor" yaml:"anchor"`
	Propagate PropagateConfig `toml:"propagate" yaml:"propagate"`
	Render    RenderConfig    `toml:"render" yaml:"render"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
}

// AnchorConfig mirrors [family.AnchorOptions].
type AnchorConfig struct {
	RequireParents bool `toml:"require_parents" yaml:"require_parents"`
}

// PropagateConfig selects the reconcile policy: overwrite, max or reject.
type PropagateConfig struct {
	Reconcile string `toml:"reconcile" yaml:"reconcile"`
}

// RenderConfig holds diagram defaults.
type RenderConfig struct {
	Formats    []string `toml:"formats" yaml:"formats"`
	Detailed   bool     `toml:"detailed" yaml:"detailed"`
	Unassigned string   `toml:"unassigned" yaml:"unassigned"` // omit or band
}

// CacheConfig selects the cache backend. RedisURL takes precedence over Dir.
type CacheConfig struct {
	Disabled bool   `toml:"disabled" yaml:"disabled"`
	Dir      string `toml:"dir" yaml:"dir"`
	RedisURL string `toml:"redis_url" yaml:"redis_url"`
}

// StoreConfig locates the SQLite database used by the import command.
type StoreConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Propagate: PropagateConfig{Reconcile: family.ReconcileOverwrite.String()},
		Render: RenderConfig{
			Formats:    []string{FormatSVG},
			Unassigned: "omit",
		},
		Store:  StoreConfig{Path: "lineage.db"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Find returns the first existing config file, or "" when there is none.
func Find() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	candidates := []string{"lineage.toml", "lineage.yaml", "lineage.yml"}
	if dir, err := configDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.toml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func configDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "lineage"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lineage"), nil
}

// Load reads the file at path on top of [Default] and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read config")
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errs.New(errs.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unsupported config format %q (use .toml or .yaml)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := family.ParseReconcile(c.Propagate.Reconcile); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "propagate.reconcile")
	}
	if _, err := nodelink.ParseUnassigned(c.Render.Unassigned); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "render.unassigned")
	}
	if err := ValidateFormats(c.Render.Formats); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "render.formats")
	}
	return nil
}

// ValidateFormats checks that every format is supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !slices.Contains(Formats, f) {
			return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %s (must be one of %s)", f, strings.Join(Formats, ", "))
		}
	}
	return nil
}

// FamilyOptions converts the anchor and propagate sections.
func (c *Config) FamilyOptions() (family.Options, error) {
	r, err := family.ParseReconcile(c.Propagate.Reconcile)
	if err != nil {
		return family.Options{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "propagate.reconcile")
	}
	return family.Options{
		Anchor:    family.AnchorOptions{RequireParents: c.Anchor.RequireParents},
		Propagate: family.PropagateOptions{Reconcile: r},
	}, nil
}

// RenderOptions converts the render section.
func (c *Config) RenderOptions() (nodelink.Options, error) {
	u, err := nodelink.ParseUnassigned(c.Render.Unassigned)
	if err != nil {
		return nodelink.Options{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "render.unassigned")
	}
	return nodelink.Options{Detailed: c.Render.Detailed, Unassigned: u}, nil
}
