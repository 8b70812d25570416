package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML file at path (optional), applies environment
// overrides from lookup and validates the result. Any validation failure is
// returned as *Error.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	var errs []ValidationError
	if lookup != nil {
		errs = append(errs, ApplyEnv(&cfg, lookup)...)
	}
	errs = append(errs, Validate(&cfg)...)
	if len(errs) > 0 {
		return nil, &Error{Errors: errs}
	}
	return &cfg, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return &cfg, nil
}

// decode rejects unknown keys so typos surface as errors.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
