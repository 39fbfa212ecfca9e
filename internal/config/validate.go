package config

import (
	"fmt"
	"strings"

	"cepstra/internal/featstore"
	"cepstra/internal/services"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputPattern) == "" {
		return invalid("paths.input_pattern must be set")
	}
	if strings.TrimSpace(c.Paths.LinearOutputPattern) == "" {
		return invalid("paths.linear_output_pattern must be set")
	}
	if strings.TrimSpace(c.Paths.MelOutputPattern) == "" {
		return invalid("paths.mel_output_pattern must be set")
	}
	if c.Paths.LinearOutputPattern == c.Paths.MelOutputPattern {
		return invalid("paths.linear_output_pattern and paths.mel_output_pattern must differ")
	}
	return nil
}

func (c *Config) validateStorage() error {
	dtype := featstore.DType(c.Storage.Precision)
	if !dtype.IsFloat() {
		return invalid("storage.precision must be float16, float32, or float64, got %q", c.Storage.Precision)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return invalid("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
}
