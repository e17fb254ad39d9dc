package config

import (
	"fmt"
	"os"

	"github.com/dejo1307/docalias/internal/alias"
	"gopkg.in/yaml.v3"
)

// Config represents the docalias.yaml configuration.
type Config struct {
	Paths             []string      `yaml:"paths"`
	SkipDirs          []string      `yaml:"skip_dirs"`
	Ignore            []string      `yaml:"ignore"`
	Extension         string        `yaml:"extension"`
	Namespace         string        `yaml:"namespace"`
	ExtensionSuffixes []string      `yaml:"extension_suffixes"`
	DirectivePrefix   string        `yaml:"directive_prefix"`
	IgnoreDirective   string        `yaml:"ignore_directive"`
	FailFast          bool          `yaml:"fail_fast"`
	VerifySyntax      bool          `yaml:"verify_syntax"`
	Report            string        `yaml:"report,omitempty"`
	Symbols           SymbolsConfig `yaml:"symbols"`
	Checks            ChecksConfig  `yaml:"checks"`
}

// SymbolsConfig controls which foreign symbols become aliases.
type SymbolsConfig struct {
	IgnoreSuffixes []string          `yaml:"ignore_suffixes"`
	IgnorePrefixes []string          `yaml:"ignore_prefixes"`
	IgnoreNames    []string          `yaml:"ignore_names"`
	Renames        map[string]string `yaml:"renames"`
	SkipPairs      []alias.SkipPair  `yaml:"skip_pairs"`
}

// ChecksConfig controls the repository hygiene checks.
type ChecksConfig struct {
	Enabled       []string `yaml:"enabled"`
	LicenseHeader string   `yaml:"license_header"`
	GirFile       string   `yaml:"gir_file"`
	IndentWidth   int      `yaml:"indent_width"`
	Parallel      int      `yaml:"parallel"`
}

const (
	defaultLicenseHeader = "// Take a look at the license at the top of the repository in the LICENSE file."
	defaultGirFile       = "Gir.toml"
	defaultIndentWidth   = 4
	defaultParallel      = 4
)

// Default returns a Config with the gtk-rs conventions.
func Default() *Config {
	r := alias.DefaultRules()
	return &Config{
		Paths:    []string{"src"},
		SkipDirs: []string{"auto", "subclass"},
		Ignore: []string{
			"target/**",
			".git/**",
		},
		Extension:         ".rs",
		Namespace:         r.Namespace,
		ExtensionSuffixes: r.ExtensionSuffixes,
		DirectivePrefix:   r.DirectivePrefix,
		IgnoreDirective:   r.IgnoreDirective,
		FailFast:          true,
		Symbols: SymbolsConfig{
			IgnoreSuffixes: r.IgnoreSuffixes,
			IgnorePrefixes: r.IgnorePrefixes,
			IgnoreNames:    r.IgnoreNames,
			Renames:        r.Renames,
			SkipPairs:      r.SkipPairs,
		},
		Checks: ChecksConfig{
			Enabled:       []string{"license", "gir-files", "manual-traits"},
			LicenseHeader: defaultLicenseHeader,
			GirFile:       defaultGirFile,
			IndentWidth:   defaultIndentWidth,
			Parallel:      defaultParallel,
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Ensure required defaults
	if cfg.Extension == "" {
		cfg.Extension = ".rs"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = alias.DefaultRules().Namespace
	}
	if cfg.DirectivePrefix == "" {
		cfg.DirectivePrefix = alias.DefaultRules().DirectivePrefix
	}
	if cfg.IgnoreDirective == "" {
		cfg.IgnoreDirective = alias.DefaultRules().IgnoreDirective
	}
	if cfg.Checks.LicenseHeader == "" {
		cfg.Checks.LicenseHeader = defaultLicenseHeader
	}
	if cfg.Checks.GirFile == "" {
		cfg.Checks.GirFile = defaultGirFile
	}
	if cfg.Checks.IndentWidth <= 0 {
		cfg.Checks.IndentWidth = defaultIndentWidth
	}
	if cfg.Checks.Parallel <= 0 {
		cfg.Checks.Parallel = defaultParallel
	}

	return cfg, nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Rules converts the symbol and directive settings into annotation rules.
func (c *Config) Rules() alias.Rules {
	return alias.Rules{
		Namespace:         c.Namespace,
		ExtensionSuffixes: c.ExtensionSuffixes,
		IgnoreSuffixes:    c.Symbols.IgnoreSuffixes,
		IgnorePrefixes:    c.Symbols.IgnorePrefixes,
		IgnoreNames:       c.Symbols.IgnoreNames,
		Renames:           c.Symbols.Renames,
		SkipPairs:         c.Symbols.SkipPairs,
		DirectivePrefix:   c.DirectivePrefix,
		IgnoreDirective:   c.IgnoreDirective,
	}
}

// IsCheckEnabled returns true if the named check is enabled.
func (c *Config) IsCheckEnabled(name string) bool {
	return contains(c.Checks.Enabled, name)
}

// IsSkippedDir returns true if directories with this name are never entered.
func (c *Config) IsSkippedDir(name string) bool {
	return contains(c.SkipDirs, name)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
