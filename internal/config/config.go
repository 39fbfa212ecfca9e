package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"cepstra/internal/dualbank"
	"cepstra/internal/featstore"
	"cepstra/internal/features"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds the filename patterns. "{}" or "{id}" is replaced by the file
// identifier.
type Paths struct {
	InputPattern        string `toml:"input_pattern"`
	LinearOutputPattern string `toml:"linear_output_pattern"`
	MelOutputPattern    string `toml:"mel_output_pattern"`
}

// Features mirrors features.Settings.
type Features struct {
	SamplingFrequency  int     `toml:"sampling_frequency"`
	LowerFrequency     float64 `toml:"lower_frequency"`
	HigherFrequencyMel float64 `toml:"higher_frequency_mel"`
	FilterBank         string  `toml:"filter_bank"`
	FilterBankSize     int     `toml:"filter_bank_size"`
	WindowSize         float64 `toml:"window_size"`
	Shift              float64 `toml:"shift"`
	CepsNumber         int     `toml:"ceps_number"`
	SNR                float64 `toml:"snr"`
	PreEmphasis        float64 `toml:"pre_emphasis"`
	VAD                string  `toml:"vad"`
	KeepAllFeatures    bool    `toml:"keep_all_features"`
	Compression        string  `toml:"compression"`
}

// Storage configures feature store encoding.
type Storage struct {
	Precision string `toml:"precision"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for cepstra.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Features Features `toml:"features"`
	Storage  Storage  `toml:"storage"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the resolved path, and whether that file existed. A missing file
// yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b).SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}

// Settings returns the extractor settings.
func (c *Config) Settings() features.Settings {
	f := c.Features
	return features.Settings{
		SamplingFrequency:  f.SamplingFrequency,
		LowerFrequency:     f.LowerFrequency,
		HigherFrequencyMel: f.HigherFrequencyMel,
		FilterBank:         features.FilterBank(f.FilterBank),
		FilterBankSize:     f.FilterBankSize,
		WindowSize:         f.WindowSize,
		Shift:              f.Shift,
		CepsNumber:         f.CepsNumber,
		SNR:                f.SNR,
		PreEmphasis:        f.PreEmphasis,
		VAD:                features.VADMethod(f.VAD),
		KeepAllFeatures:    f.KeepAllFeatures,
		Compression:        features.Compression(f.Compression),
	}
}

// Patterns returns the extractor filename patterns.
func (c *Config) Patterns() dualbank.Patterns {
	return dualbank.Patterns{
		Input:  features.Pattern(c.Paths.InputPattern),
		Linear: features.Pattern(c.Paths.LinearOutputPattern),
		Mel:    features.Pattern(c.Paths.MelOutputPattern),
	}
}

// StoreOptions returns the feature store write options.
func (c *Config) StoreOptions() featstore.Options {
	return featstore.Options{Precision: featstore.DType(c.Storage.Precision)}
}
