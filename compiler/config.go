package compiler

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-lua/edition"
	"github.com/wippyai/wasm-lua/errors"
)

// Config holds compilation settings. It can be loaded from YAML:
//
//	edition: luau
//	functions: [run, step]
//	skip_validation: false
//	comments: true
type Config struct {
	// Edition names the target runtime, see edition.Names.
	Edition string `yaml:"edition"`

	// Functions restricts output to functions exported under these names.
	// Empty means every defined function.
	Functions []string `yaml:"functions,omitempty"`

	// SkipValidation disables the wazero validation pass.
	SkipValidation bool `yaml:"skip_validation,omitempty"`

	// Comments keeps straight-line instructions as Lua comments.
	Comments bool `yaml:"comments"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Edition:  edition.LuaJIT{}.Runtime(),
		Comments: true,
	}
}

// LoadConfig reads a YAML config file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read config "+path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path).
			Detail("parse config").
			Cause(err).
			Build()
	}
	return cfg, nil
}

// WithEdition sets the target runtime
func (c *Config) WithEdition(name string) *Config {
	c.Edition = name
	return c
}

// WithFunctions restricts output to the named exports
func (c *Config) WithFunctions(names ...string) *Config {
	c.Functions = names
	return c
}

// WithSkipValidation toggles the wazero validation pass
func (c *Config) WithSkipValidation(skip bool) *Config {
	c.SkipValidation = skip
	return c
}

// WithComments toggles instruction comments
func (c *Config) WithComments(on bool) *Config {
	c.Comments = on
	return c
}

// Validate checks that the edition exists and function names are usable.
func (c *Config) Validate() error {
	if _, err := edition.ByName(c.Edition); err != nil {
		return err
	}
	for i, name := range c.Functions {
		if name == "" {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("functions").
				Value(i).
				Detail("empty function name at index %d", i).
				Build()
		}
	}
	return nil
}
