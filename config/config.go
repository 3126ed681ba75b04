// Package config parses the loader configuration file described in §6: a
// language tag and source paths, plus execution paths and dependency
// ordering.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/polyrt/ffi/ferr"
)

// Config is one loader configuration: at minimum a language tag and a list
// of source paths.
type Config struct {
	// LanguageID selects which backend tag to instantiate.
	LanguageID string `yaml:"language_id"`

	// Path is the base directory relative source paths resolve against.
	Path string `yaml:"path"`

	// Scripts is the ordered list of source specifiers to load.
	Scripts []string `yaml:"scripts"`

	// ExecutionPaths is the ordered list of directories added to the
	// backend's search path before load.
	ExecutionPaths []string `yaml:"execution_paths"`

	// Dependencies is the ordered list of other configurations to load
	// (and fully discover) before this one.
	Dependencies []Config `yaml:"dependencies"`
}

// Load reads and parses a configuration file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferr.Wrap(ferr.NotFound, "read config "+path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, ferr.Wrap(ferr.SignatureMismatch, "parse config", err)
	}
	if c.LanguageID == "" {
		return nil, ferr.New(ferr.SignatureMismatch, "config missing language_id")
	}
	return &c, nil
}

// LoadOrder returns the configs to apply, dependencies first (in their
// declared order, recursively), followed by c itself. This gives callers
// the exact load/discover sequencing §6 requires: "dependencies are
// loaded and discovered fully before the dependent."
func (c *Config) LoadOrder() []*Config {
	var order []*Config
	for i := range c.Dependencies {
		order = append(order, c.Dependencies[i].LoadOrder()...)
	}
	order = append(order, c)
	return order
}

// ScriptPathBase returns the environment variable LOADER_SCRIPT_PATH if
// set, else Path.
func ScriptPathBase(c *Config) string {
	if base := os.Getenv("LOADER_SCRIPT_PATH"); base != "" {
		return base
	}
	return c.Path
}

// Source is one backend tag's fully-resolved load request: the execution
// paths to register before loading, and the script paths to load under
// that tag. Sources flattens a Config's dependency tree, in LoadOrder's
// dependencies-first sequence, into the requests a
// registry.Registry.LoadConfig can issue directly.
type Source struct {
	Tag            string
	ExecutionPaths []string
	Scripts        []string
}

// Sources flattens c.LoadOrder() into a Source per configuration, with
// each Scripts entry resolved against that configuration's ScriptPathBase.
func (c *Config) Sources() []Source {
	order := c.LoadOrder()
	out := make([]Source, 0, len(order))
	for _, cfg := range order {
		base := ScriptPathBase(cfg)
		scripts := make([]string, len(cfg.Scripts))
		for i, s := range cfg.Scripts {
			if filepath.IsAbs(s) {
				scripts[i] = s
			} else {
				scripts[i] = filepath.Join(base, s)
			}
		}
		out = append(out, Source{
			Tag:            cfg.LanguageID,
			ExecutionPaths: cfg.ExecutionPaths,
			Scripts:        scripts,
		})
	}
	return out
}
