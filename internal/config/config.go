// Package config loads memaccess configuration files.
//
// Example:
//
//	arch: 386
//	noinstrument:
//	  - example.com/app/internal/fastpath.*
//	  - (*example.com/app.Ring).push
//	report:
//	  reads: true
//	  writes: false
//	  allocs: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/types"
	"io"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Config is the decoded configuration.
type Config struct {
	// Arch overrides the target architecture used for type layout.
	Arch string `yaml:"arch"`
	// NoInstrument lists path.Match patterns matched against fully qualified
	// function names as printed by go/ssa.
	NoInstrument []string `yaml:"noinstrument"`
	Report       Report   `yaml:"report"`
}

// Report selects which access kinds are reported.
//
// A memaccess:ignore directive counts as used when it covers an access or
// allocation of any kind, including kinds that are not reported.
type Report struct {
	Reads  *bool `yaml:"reads"`
	Writes *bool `yaml:"writes"`
	// Allocs enables reports of stack, heap and global allocation sites.
	Allocs *bool `yaml:"allocs"`
}

// ErrUnknownArch is returned for an arch the gc compiler does not support.
var ErrUnknownArch = errors.New("unknown architecture")

// Default returns the configuration used when no file is given.
func Default() *Config { return &Config{} }

// Load reads and validates the file at name.
func Load(name string) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Decode reads and validates a configuration from r. Unknown keys are
// rejected.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks patterns and the architecture.
func (c *Config) Validate() error {
	for _, p := range c.NoInstrument {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("noinstrument pattern %q: %w", p, err)
		}
	}
	if c.Arch != "" && types.SizesFor("gc", c.Arch) == nil {
		return fmt.Errorf("%w %q", ErrUnknownArch, c.Arch)
	}
	return nil
}

// Sizes returns the layout override, or nil when the host's sizes apply.
func (c *Config) Sizes() types.Sizes {
	if c.Arch == "" {
		return nil
	}
	return types.SizesFor("gc", c.Arch)
}

// Excluded reports whether the function with the given qualified name
// matches a noinstrument pattern.
func (c *Config) Excluded(name string) bool {
	for _, p := range c.NoInstrument {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// ReportReads reports whether reads are reported. Defaults to true.
func (c *Config) ReportReads() bool { return c.Report.Reads == nil || *c.Report.Reads }

// ReportWrites reports whether writes are reported. Defaults to true.
func (c *Config) ReportWrites() bool { return c.Report.Writes == nil || *c.Report.Writes }

// ReportAllocs reports whether allocation sites are reported. Defaults to
// false.
func (c *Config) ReportAllocs() bool { return c.Report.Allocs != nil && *c.Report.Allocs }
