package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// fileName is the engine's single YAML config file, analogous to the
// teacher's tarsy.yaml.
const fileName = "engine.yaml"

// Load reads engine.yaml from configDir (if present), expands environment
// variables, merges it over the built-in defaults, and validates the
// result. Mirrors the teacher's Initialize() pipeline in
// pkg/config/loader.go: load -> expand-env -> merge -> defaults -> validate.
func Load(configDir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(configDir, fileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		data = ExpandEnv(data)
		var user Config
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
		if err := mergo.Merge(cfg, user, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, err)
		}
	case os.IsNotExist(err):
		// No user config — built-in defaults only. They include no provider,
		// so Validate rejects the result with ErrNoProviders.
	default:
		return nil, NewLoadError(path, err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
