package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeatures()
	c.Storage.Precision = lower(c.Storage.Precision, defaultPrecision)
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.input_pattern", &c.Paths.InputPattern},
		{"paths.linear_output_pattern", &c.Paths.LinearOutputPattern},
		{"paths.mel_output_pattern", &c.Paths.MelOutputPattern},
	}
	for _, f := range fields {
		trimmed := strings.TrimSpace(*f.value)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.value = expanded
	}
	return nil
}

func (c *Config) normalizeFeatures() {
	c.Features.FilterBank = lower(c.Features.FilterBank, "")
	c.Features.VAD = lower(c.Features.VAD, "")
	c.Features.Compression = lower(c.Features.Compression, "")
}

func (c *Config) normalizeLogging() error {
	c.Logging.Level = lower(c.Logging.Level, defaultLogLevel)
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	c.Logging.Format = lower(c.Logging.Format, defaultLogFormat)
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}

func lower(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
