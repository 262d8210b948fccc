package vertec

import (
	"fmt"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config carries the connection settings. Credentials are resolved once per
// run; nothing here outlives the process unless Save is called explicitly.
type Config struct {
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password,omitempty"`
}

func LoadConfigFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	// expand environment variables $
	expanded := os.ExpandEnv(string(content))

	cfg := new(Config)
	err = yaml.Unmarshal([]byte(expanded), cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("yaml")
	})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Save writes the configuration back to path. The file is created private
// since it may carry a password.
func (c *Config) Save(path string) error {
	content, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Masked returns a copy with the password replaced for display.
func (c *Config) Masked() Config {
	masked := *c
	if masked.Password != "" {
		masked.Password = "********"
	}
	return masked
}
