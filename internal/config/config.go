package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// EnvHostVersion overrides host_version from any config file.
const EnvHostVersion = "JSONMIGRATION_HOST_VERSION"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config represents the complete configuration for jsonmigration
type Config struct {
	// HostVersion is the host major version. Zero means ask the host.
	HostVersion int           `yaml:"host_version"`
	Scope       string        `yaml:"scope"`
	Logging     LoggingConfig `yaml:"logging"`
	Convert     ConvertConfig `yaml:"convert"`
	Codegen     CodegenConfig `yaml:"codegen"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// ConvertConfig controls the convert command output
type ConvertConfig struct {
	Indent string `yaml:"indent"`
}

// CodegenConfig controls generated wrapper sources
type CodegenConfig struct {
	// Package overrides the package named in the descriptor.
	Package    string `yaml:"package"`
	Suffix     string `yaml:"suffix"`
	FileHeader string `yaml:"file_header"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Scope: "default",
		Convert: ConvertConfig{
			Indent: "",
		},
		Codegen: CodegenConfig{
			Suffix: "Instrumented",
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies the
// environment override.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsonmigration.yml", ".jsonmigration.yaml", "jsonmigration.yml", "jsonmigration.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// ApplyEnv applies JSONMIGRATION_HOST_VERSION when it is set.
func (c *Config) ApplyEnv() error {
	raw := strings.TrimSpace(os.Getenv(EnvHostVersion))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvHostVersion, raw, err)
	}
	c.HostVersion = v
	return nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.HostVersion < 0 {
		return fmt.Errorf("host_version must not be negative, got %d", c.HostVersion)
	}
	if strings.TrimSpace(c.Scope) == "" {
		return fmt.Errorf("scope must not be empty")
	}
	if c.Codegen.Package != "" && !identifier.MatchString(c.Codegen.Package) {
		return fmt.Errorf("codegen.package %q is not a Go identifier", c.Codegen.Package)
	}
	if !identifier.MatchString(c.Codegen.Suffix) {
		return fmt.Errorf("codegen.suffix %q is not a Go identifier", c.Codegen.Suffix)
	}
	return nil
}

// WrapperName returns the generated wrapper type name for a component type.
func (c *Config) WrapperName(typeName string) string {
	return strcase.ToCamel(typeName) + c.Codegen.Suffix
}

// MergeConfigs merges CLI overrides into a base config
// Non-empty values from override take precedence over base values
func MergeConfigs(base, override *Config) *Config {
	merged := *base

	if override.HostVersion > 0 {
		merged.HostVersion = override.HostVersion
	}
	if override.Scope != "" {
		merged.Scope = override.Scope
	}
	if override.Convert.Indent != "" {
		merged.Convert.Indent = override.Convert.Indent
	}
	if override.Codegen.Package != "" {
		merged.Codegen.Package = override.Codegen.Package
	}
	// A debug flag can only switch logging on.
	merged.Logging.Debug = base.Logging.Debug || override.Logging.Debug

	return &merged
}

// LoadConfigWithCLI loads config with CLI argument precedence: CLI flags,
// then the environment, then the config file, then defaults.
func LoadConfigWithCLI(configPath string, cliHostVersion int, cliDebug bool) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	} else if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg = MergeConfigs(cfg, &Config{
		HostVersion: cliHostVersion,
		Logging:     LoggingConfig{Debug: cliDebug},
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
