// Package config loads the mount manifest.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"unionwatch/internal/logging"
	"unionwatch/internal/mount"
	"unionwatch/internal/overlay"
	"unionwatch/internal/pattern"
)

const DefaultListen = ":8080"

// Source declares one physical root to union.
type Source struct {
	Name string `yaml:"name"`
	Root string `yaml:"root"`
}

// Rule binds a glob pattern to a tag. Order matters: the first match
// wins during resolution.
type Rule struct {
	Tag     string `yaml:"tag"`
	Pattern string `yaml:"pattern"`
}

// Config is the parsed mount manifest.
type Config struct {
	Listen   string   `yaml:"listen"`
	LogLevel string   `yaml:"log_level"`
	Sources  []Source `yaml:"sources"`
	Tags     []Rule   `yaml:"tags"`
	Ignore   []string `yaml:"ignore"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, nil
}

// Parse decodes and validates manifest data.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, source := range c.Sources {
		if strings.TrimSpace(source.Name) == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if strings.TrimSpace(source.Root) == "" {
			return fmt.Errorf("source %q: root is required", source.Name)
		}
		if _, dup := seen[source.Name]; dup {
			return fmt.Errorf("duplicate source %q", source.Name)
		}
		seen[source.Name] = struct{}{}
	}

	if len(c.Tags) == 0 {
		return fmt.Errorf("at least one tag rule is required")
	}
	for i, rule := range c.Tags {
		if strings.TrimSpace(rule.Tag) == "" {
			return fmt.Errorf("tag rule %d: tag is required", i)
		}
		if strings.TrimSpace(rule.Pattern) == "" {
			return fmt.Errorf("tag rule %q: pattern is required", rule.Tag)
		}
	}

	if c.LogLevel != "" {
		if _, ok := logging.ParseLevel(c.LogLevel); !ok {
			return fmt.Errorf("unknown log level %q", c.LogLevel)
		}
	}
	return nil
}

// MountSources converts the manifest sources for the mount package.
func (c *Config) MountSources() []mount.SourceSpec {
	specs := make([]mount.SourceSpec, 0, len(c.Sources))
	for _, source := range c.Sources {
		specs = append(specs, mount.SourceSpec{
			Name: overlay.Source(source.Name),
			Root: source.Root,
		})
	}
	return specs
}

// MountRules converts the manifest tag rules, preserving order.
func (c *Config) MountRules() []pattern.Rule {
	rules := make([]pattern.Rule, 0, len(c.Tags))
	for _, rule := range c.Tags {
		rules = append(rules, pattern.Rule{
			Tag:     pattern.Tag(rule.Tag),
			Pattern: rule.Pattern,
		})
	}
	return rules
}
