// Package config holds the runtime configuration.
//
// The runtime recognizes exactly one option, the debug flag, which turns on
// logging of every dispatched action and every committed state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const KeyDebug = "debug"

// Config is the runtime configuration.
type Config struct {
	Debug bool `yaml:"debug"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Default returns the zero configuration: debugging disabled.
func Default() Config {
	return Config{}
}

// Parse decodes a YAML document. Unknown keys are rejected.
// An empty document yields the default configuration.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}
