package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed environments.yaml
var defaultEnvironmentsYAML []byte

// Environment describes one OrangeHRM deployment the suite can target.
type Environment struct {
	BaseURL     string `yaml:"base_url"`
	Description string `yaml:"description"`
}

// Environments is the parsed environment profile file.
type Environments struct {
	Default      string                 `yaml:"default"`
	Environments map[string]Environment `yaml:"environments"`
}

// ParseEnvironments decodes an environment profile document.
func ParseEnvironments(data []byte) (*Environments, error) {
	var envs Environments
	if err := yaml.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("parse environments: %w", err)
	}
	if len(envs.Environments) == 0 {
		return nil, fmt.Errorf("parse environments: no environments defined")
	}
	if envs.Default != "" {
		if _, ok := envs.Environments[envs.Default]; !ok {
			return nil, fmt.Errorf("parse environments: default %q is not defined", envs.Default)
		}
	}
	return &envs, nil
}

// LoadEnvironments reads profiles from path, or the embedded defaults when
// path is empty.
func LoadEnvironments(path string) (*Environments, error) {
	if strings.TrimSpace(path) == "" {
		return ParseEnvironments(defaultEnvironmentsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environments file %q: %w", path, err)
	}
	return ParseEnvironments(data)
}

// Lookup returns the named environment. An empty name selects the default.
func (e *Environments) Lookup(name string) (string, Environment, error) {
	if name == "" {
		name = e.Default
	}
	env, ok := e.Environments[name]
	if !ok {
		return name, Environment{}, fmt.Errorf("unknown environment %q (known: %s)", name, strings.Join(e.Names(), ", "))
	}
	return name, env, nil
}

// Names returns the sorted environment names.
func (e *Environments) Names() []string {
	names := make([]string, 0, len(e.Environments))
	for name := range e.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
