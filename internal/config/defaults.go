package config

import "cepstra/internal/features"

const (
	defaultConfigPath          = "~/.config/cepstra/config.toml"
	projectConfigName          = "cepstra.toml"
	defaultInputPattern        = "audio/{}.wav"
	defaultLinearOutputPattern = "features/lin/{}.sqlite"
	defaultMelOutputPattern    = "features/mel/{}.sqlite"
	defaultPrecision           = "float32"
	defaultLogLevel            = "info"
	defaultLogFormat           = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	s := features.DefaultSettings()
	return Config{
		Paths: Paths{
			InputPattern:        defaultInputPattern,
			LinearOutputPattern: defaultLinearOutputPattern,
			MelOutputPattern:    defaultMelOutputPattern,
		},
		Features: Features{
			SamplingFrequency:  s.SamplingFrequency,
			LowerFrequency:     s.LowerFrequency,
			HigherFrequencyMel: s.HigherFrequencyMel,
			FilterBank:         string(s.FilterBank),
			FilterBankSize:     s.FilterBankSize,
			WindowSize:         s.WindowSize,
			Shift:              s.Shift,
			CepsNumber:         s.CepsNumber,
			SNR:                s.SNR,
			PreEmphasis:        s.PreEmphasis,
			VAD:                string(s.VAD),
			KeepAllFeatures:    s.KeepAllFeatures,
			Compression:        string(s.Compression),
		},
		Storage: Storage{
			Precision: defaultPrecision,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
