package features

import (
	"fmt"
	"math"

	"cepstra/internal/services"
)

// FilterBank identifies the spacing of the triangular filters.
type FilterBank string

const (
	// FilterBankLinear spaces filters uniformly in Hz.
	FilterBankLinear FilterBank = "lin"
	// FilterBankLog spaces filters uniformly on the mel scale.
	FilterBankLog FilterBank = "log"
)

// Valid reports whether fb is a known filter bank kind.
func (fb FilterBank) Valid() bool {
	return fb == FilterBankLinear || fb == FilterBankLog
}

// VADMethod selects the voice-activity detector.
type VADMethod string

const (
	VADSNR  VADMethod = "snr"
	VADNone VADMethod = "none"
)

// Compression selects how cep, fb, and energy matrices are persisted.
type Compression string

const (
	// CompressionPercentile stores uint8 codes with per-column percentile
	// headers and a global min/range.
	CompressionPercentile Compression = "percentile"
	// CompressionNone stores the float matrices directly.
	CompressionNone Compression = "none"
)

// Settings is the parameter set shared by every pipeline of an extractor.
type Settings struct {
	SamplingFrequency  int
	LowerFrequency     float64
	HigherFrequencyMel float64
	// FilterBank is accepted for configuration parity; the dual extractor
	// always builds one "lin" and one "log" pipeline.
	FilterBank     FilterBank
	FilterBankSize int
	// WindowSize and Shift are in seconds.
	WindowSize  float64
	Shift       float64
	CepsNumber  int
	SNR         float64
	PreEmphasis float64

	VAD             VADMethod
	KeepAllFeatures bool
	Compression     Compression
}

// DefaultSettings returns the usual speaker-verification front end: 16 kHz,
// 200-3800 Hz, 24 filters, 25 ms / 10 ms frames, 20 cepstra, 40 dB SNR VAD,
// 0.97 pre-emphasis.
func DefaultSettings() Settings {
	return Settings{
		SamplingFrequency:  16000,
		LowerFrequency:     200,
		HigherFrequencyMel: 3800,
		FilterBank:         FilterBankLog,
		FilterBankSize:     24,
		WindowSize:         0.025,
		Shift:              0.01,
		CepsNumber:         20,
		SNR:                40,
		PreEmphasis:        0.97,
		VAD:                VADSNR,
		KeepAllFeatures:    true,
		Compression:        CompressionPercentile,
	}
}

// WindowLength returns the analysis window in samples.
func (s Settings) WindowLength() int {
	return int(math.Round(s.WindowSize * float64(s.SamplingFrequency)))
}

// HopLength returns the frame shift in samples.
func (s Settings) HopLength() int {
	return int(math.Round(s.Shift * float64(s.SamplingFrequency)))
}

// Nyquist returns half the sampling frequency.
func (s Settings) Nyquist() float64 {
	return float64(s.SamplingFrequency) / 2
}

// FrameCount returns how many full windows fit into n samples.
func (s Settings) FrameCount(n int) int {
	win, hop := s.WindowLength(), s.HopLength()
	if win <= 0 || hop <= 0 || n < win {
		return 0
	}
	return (n-win)/hop + 1
}

// Validate reports the first unusable setting.
func (s Settings) Validate() error {
	fail := func(format string, args ...any) error {
		return services.Wrap(services.ErrConfiguration, "features", "validate", fmt.Sprintf(format, args...), nil)
	}
	switch {
	case s.SamplingFrequency <= 0:
		return fail("sampling_frequency must be positive, got %d", s.SamplingFrequency)
	case s.LowerFrequency < 0:
		return fail("lower_frequency must not be negative, got %g", s.LowerFrequency)
	case s.HigherFrequencyMel <= s.LowerFrequency:
		return fail("higher_frequency_mel (%g) must exceed lower_frequency (%g)", s.HigherFrequencyMel, s.LowerFrequency)
	case s.HigherFrequencyMel > s.Nyquist():
		return fail("higher_frequency_mel (%g) exceeds the Nyquist frequency (%g)", s.HigherFrequencyMel, s.Nyquist())
	case !s.FilterBank.Valid():
		return fail("filter_bank must be %q or %q, got %q", FilterBankLinear, FilterBankLog, s.FilterBank)
	case s.FilterBankSize < 2:
		return fail("filter_bank_size must be at least 2, got %d", s.FilterBankSize)
	case s.WindowSize <= 0 || s.WindowLength() < 2:
		return fail("window_size %g is shorter than two samples", s.WindowSize)
	case s.Shift <= 0 || s.HopLength() < 1:
		return fail("shift %g is shorter than one sample", s.Shift)
	case s.CepsNumber < 1 || s.CepsNumber >= s.FilterBankSize:
		return fail("ceps_number must be in [1, %d], got %d", s.FilterBankSize-1, s.CepsNumber)
	case s.SNR < 0:
		return fail("snr must not be negative, got %g", s.SNR)
	case s.PreEmphasis < 0 || s.PreEmphasis >= 1:
		return fail("pre_emphasis must be in [0, 1), got %g", s.PreEmphasis)
	case s.VAD != VADSNR && s.VAD != VADNone:
		return fail("vad must be %q or %q, got %q", VADSNR, VADNone, s.VAD)
	case s.Compression != CompressionPercentile && s.Compression != CompressionNone:
		return fail("compression must be %q or %q, got %q", CompressionPercentile, CompressionNone, s.Compression)
	}
	return nil
}
