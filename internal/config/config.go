// Package config loads TOML-based default settings for the xmilesim CLI:
// named model search paths and simulation-spec overrides used during local
// testing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Overrides holds simulation-spec values that, when set, take precedence
// over the values given in a model's <sim_specs> block. A zero value means
// "no override"; Dt and SaveStep of 0 are not valid simulation values so
// there is no ambiguity.
type Overrides struct {
	Dt       float64 `toml:"dt"`
	SaveStep float64 `toml:"savestep"`
}

// Config is the decoded form of an xmilesim config file.
type Config struct {
	// Models maps a short name to the path of an XMILE model file, so CLI
	// invocations can refer to "--model houses" instead of a full path.
	Models map[string]string `toml:"models"`

	// Overrides are applied to every model run started from this config,
	// unless the CLI is given explicit flags that take precedence.
	Overrides Overrides `toml:"overrides"`
}

// Load reads and decodes the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ResolveModel returns the path a model name refers to. If name is not a key
// in cfg.Models, name is returned unchanged so that it can be used directly
// as a filesystem path.
func (cfg Config) ResolveModel(name string) string {
	if path, ok := cfg.Models[name]; ok {
		return path
	}
	return name
}
