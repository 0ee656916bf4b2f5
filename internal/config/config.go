// Package config loads the msglint configuration from .msglint.yml,
// MSGLINT_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name of the configuration file.
const DefaultConfigFile = ".msglint.yml"

// EnvPrefix is the prefix of environment variables overriding the config.
// Nested keys are separated by a double underscore, e.g.
// MSGLINT_SETTINGS__MAIN_REF.
const EnvPrefix = "MSGLINT_"

const (
	// DefaultMaxHeaderLength is the default limit for the first line.
	DefaultMaxHeaderLength = 72
	// DefaultMainRef is the ref new branches are compared against.
	DefaultMainRef = "main"
)

// DefaultTypes are the commit types accepted by default.
var DefaultTypes = []string{
	"feat", "fix", "docs", "style", "refactor", "test", "chore", "build", "ci", "perf", "revert",
}

// RuleType defines the type of rule enforcement.
type RuleType string

const (
	// RuleTypeDeny fails if the pattern matches.
	RuleTypeDeny RuleType = "deny"
	// RuleTypeRequire fails if the pattern does NOT match.
	RuleTypeRequire RuleType = "require"
)

// Scope defines which part of the parsed message a pattern is matched against.
type Scope string

const (
	// ScopeTitle searches the title after the type prefix.
	ScopeTitle Scope = "title"
	// ScopeBody searches the body between title and footers.
	ScopeBody Scope = "body"
	// ScopeFooter searches the footers, rendered as "key: value" lines.
	ScopeFooter Scope = "footer"
	// ScopeMessage searches the complete commit message.
	ScopeMessage Scope = "message"
)

// Config represents the complete configuration for commit message linting.
type Config struct {
	Types           []string      `koanf:"types"             yaml:"types"`
	MaxHeaderLength int           `koanf:"max_header_length" yaml:"max_header_length"`
	Disable         []string      `koanf:"disable"           yaml:"disable,omitempty"`
	Rules           []PatternRule `koanf:"rules"             yaml:"rules,omitempty"`
	Settings        Settings      `koanf:"settings"          yaml:"settings"`

	// Path is the config file the values were read from, empty if none.
	Path string `koanf:"-" yaml:"-"`
}

// PatternRule is a user defined regular expression rule.
type PatternRule struct {
	Name    string   `koanf:"name"    yaml:"name"`
	Type    RuleType `koanf:"type"    yaml:"type"`
	Scope   Scope    `koanf:"scope"   yaml:"scope"`
	Pattern string   `koanf:"pattern" yaml:"pattern"`
	Message string   `koanf:"message" yaml:"message,omitempty"`

	// regex is the compiled regular expression (cached, not in YAML)
	regex *regexp.Regexp
}

// Regexp returns the compiled pattern. It is nil until the config has been
// validated.
func (r *PatternRule) Regexp() *regexp.Regexp {
	return r.regex
}

// Settings contains options for linting commit ranges.
type Settings struct {
	FailFast         bool     `koanf:"fail_fast"          yaml:"fail_fast"`
	SkipMergeCommits bool     `koanf:"skip_merge_commits" yaml:"skip_merge_commits"`
	SkipAuthors      []string `koanf:"skip_authors"       yaml:"skip_authors,omitempty"`
	MainRef          string   `koanf:"main_ref"           yaml:"main_ref"`
	Concurrency      int      `koanf:"concurrency"        yaml:"concurrency"`
}

// flagKeys maps command line flags to config keys. Other flags are ignored.
var flagKeys = map[string]string{
	"types":             "types",
	"max-header-length": "max_header_length",
	"disable":           "disable",
	"main-ref":          "settings.main_ref",
	"fail-fast":         "settings.fail_fast",
	"concurrency":       "settings.concurrency",
}

// envListKeys are the keys whose environment values are comma separated lists.
var envListKeys = map[string]bool{
	"types":                 true,
	"disable":               true,
	"settings.skip_authors": true,
}

// envValue maps MSGLINT_SETTINGS__SKIP_AUTHORS=a,b to settings.skip_authors
// with the value []string{"a", "b"}.
func envValue(name string, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if !envListKeys[key] {
		return key, value
	}

	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return key, items
}

// Options controls where Load looks for configuration.
type Options struct {
	// RepoPath is searched for DefaultConfigFile if File is empty.
	RepoPath string
	// File is an explicit config file path, which must exist.
	File string
	// Flags overrides config values with flags that were set explicitly.
	Flags *pflag.FlagSet
	// Env enables MSGLINT_* environment overrides.
	Env bool
}

// Load loads and validates configuration. Precedence (highest to lowest):
// flags > env vars > config file > defaults.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	err := k.Load(confmap.Provider(map[string]any{
		"types":                       DefaultTypes,
		"max_header_length":           DefaultMaxHeaderLength,
		"settings.skip_merge_commits": true,
		"settings.main_ref":           DefaultMainRef,
		"settings.concurrency":        0,
	}, "."), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configPath, err := findConfigFile(opts)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		err = k.Load(file.Provider(configPath), yaml.Parser())
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	// 3. Environment, MSGLINT_SETTINGS__MAIN_REF -> settings.main_ref
	if opts.Env {
		err = k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}
	}

	// 4. Flags
	if opts.Flags != nil {
		err = k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}

			return key, posflag.FlagVal(opts.Flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var config Config
	err = k.Unmarshal("", &config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Path = configPath

	err = validateConfig(&config)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// findConfigFile returns the config file to read, or the empty string if
// there is none.
func findConfigFile(opts Options) (string, error) {
	if opts.File != "" {
		_, err := os.Stat(opts.File)
		if err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}

		return opts.File, nil
	}

	if opts.RepoPath == "" {
		return "", nil
	}

	configPath := filepath.Join(opts.RepoPath, DefaultConfigFile)

	_, err := os.Stat(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to stat config file: %w", err)
	}

	return configPath, nil
}

func validateConfig(config *Config) error {
	if len(config.Types) == 0 {
		return errors.New("at least one commit type is required")
	}

	for i, typ := range config.Types {
		if strings.TrimSpace(typ) == "" {
			return fmt.Errorf("types[%d]: must not be empty", i)
		}
	}

	if config.MaxHeaderLength < 0 {
		return fmt.Errorf("max_header_length must not be negative, got %d", config.MaxHeaderLength)
	}

	if config.Settings.Concurrency < 0 {
		return fmt.Errorf("settings.concurrency must not be negative, got %d", config.Settings.Concurrency)
	}

	for i := range config.Rules {
		err := validateRule(i, &config.Rules[i])
		if err != nil {
			return err
		}
	}

	// Validate skip_authors patterns
	for i, pattern := range config.Settings.SkipAuthors {
		_, compileErr := regexp.Compile(pattern)
		if compileErr != nil {
			return fmt.Errorf("skip_authors[%d]: invalid regex pattern %q: %w", i, pattern, compileErr)
		}
	}

	return nil
}

func validateRule(i int, rule *PatternRule) error {
	// Validate rule name
	if rule.Name == "" {
		return fmt.Errorf("rule %d: name is required", i)
	}

	// Validate rule type
	if rule.Type != RuleTypeDeny && rule.Type != RuleTypeRequire {
		return fmt.Errorf("rule %q: type must be 'deny' or 'require', got %q", rule.Name, rule.Type)
	}

	// Validate scope
	if rule.Scope != ScopeTitle && rule.Scope != ScopeBody &&
		rule.Scope != ScopeFooter && rule.Scope != ScopeMessage {
		return fmt.Errorf(
			"rule %q: scope must be 'title', 'body', 'footer', or 'message', got %q",
			rule.Name,
			rule.Scope,
		)
	}

	// Validate pattern (compile regex)
	if rule.Pattern == "" {
		return fmt.Errorf("rule %q: pattern is required", rule.Name)
	}

	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return fmt.Errorf("rule %q: invalid regex pattern: %w", rule.Name, err)
	}

	// Cache the compiled regex
	rule.regex = re

	return nil
}

// Marshal renders the configuration as YAML.
func Marshal(config *Config) ([]byte, error) {
	data, err := yamlv3.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	return data, nil
}
