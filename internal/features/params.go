package features

import (
	"fmt"
	"slices"
	"strings"

	"cepstra/internal/services"
)

// SaveParam names a feature group a pipeline persists.
type SaveParam string

const (
	SaveVAD    SaveParam = "vad"
	SaveEnergy SaveParam = "energy"
	SaveCep    SaveParam = "cep"
	SaveFB     SaveParam = "fb"
)

// Pattern is a filename template taking one file identifier. Both "{}" and
// "{id}" are substituted; a pattern without a placeholder resolves every
// identifier to the same path.
type Pattern string

// Resolve substitutes id into the pattern.
func (p Pattern) Resolve(id string) string {
	out := strings.ReplaceAll(string(p), "{id}", id)
	return strings.ReplaceAll(out, "{}", id)
}

// HasPlaceholder reports whether the pattern varies with the identifier.
func (p Pattern) HasPlaceholder() bool {
	return strings.Contains(string(p), "{}") || strings.Contains(string(p), "{id}")
}

// String returns the raw template.
func (p Pattern) String() string {
	return string(p)
}

// Source is one identifier to extract and the audio channel to read.
type Source struct {
	ID      string
	Channel int
}

// Sources maps identifiers onto channel-0 sources.
func Sources(ids []string) []Source {
	out := make([]Source, len(ids))
	for i, id := range ids {
		out[i] = Source{ID: id}
	}
	return out
}

// Params configures one pipeline.
type Params struct {
	Settings

	Kind            FilterBank
	HigherFrequency float64
	Save            []SaveParam
	Input           Pattern
	Output          Pattern
}

// Saves reports whether the pipeline persists param.
func (p Params) Saves(param SaveParam) bool {
	return slices.Contains(p.Save, param)
}

// Validate checks the pipeline-specific parameters on top of Settings.
func (p Params) Validate() error {
	if err := p.Settings.Validate(); err != nil {
		return err
	}
	fail := func(format string, args ...any) error {
		return services.Wrap(services.ErrConfiguration, string(p.Kind), "validate", fmt.Sprintf(format, args...), nil)
	}
	if !p.Kind.Valid() {
		return fail("unknown filter bank kind %q", p.Kind)
	}
	if p.HigherFrequency <= p.LowerFrequency || p.HigherFrequency > p.Nyquist() {
		return fail("higher frequency %g outside (%g, %g]", p.HigherFrequency, p.LowerFrequency, p.Nyquist())
	}
	if len(p.Save) == 0 {
		return fail("no fields selected for saving")
	}
	for _, param := range p.Save {
		switch param {
		case SaveVAD, SaveEnergy, SaveCep, SaveFB:
		default:
			return fail("unknown save parameter %q", param)
		}
	}
	if strings.TrimSpace(string(p.Input)) == "" {
		return fail("input pattern is empty")
	}
	if strings.TrimSpace(string(p.Output)) == "" {
		return fail("output pattern is empty")
	}
	return nil
}
