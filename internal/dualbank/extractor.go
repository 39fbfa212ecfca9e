package dualbank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"cepstra/internal/featstore"
	"cepstra/internal/features"
	"cepstra/internal/keymap"
	"cepstra/internal/logging"
	"cepstra/internal/services"
)

// Patterns are the filename templates of one extractor.
type Patterns struct {
	Input  features.Pattern
	Linear features.Pattern
	Mel    features.Pattern
}

// Record is one identifier's merged fields keyed by canonical name.
type Record map[string]featstore.Array

// FeatureSet maps identifiers to their merged records.
type FeatureSet map[string]Record

// IDs returns the identifiers in lexical order.
func (fs FeatureSet) IDs() []string {
	ids := make([]string, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Extractor owns the linear and log pipelines.
type Extractor struct {
	patterns Patterns
	linear   *features.Pipeline
	mel      *features.Pipeline
	logger   *slog.Logger
	features FeatureSet
}

type options struct {
	logger   *slog.Logger
	store    featstore.Options
	saves    map[features.FilterBank][]features.SaveParam
	pipeline []features.PipelineOption
}

// Option customises an Extractor.
type Option func(*options)

// WithLogger sets the logger used by the extractor and both pipelines.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStoreOptions sets the precision used when writing stores.
func WithStoreOptions(opts featstore.Options) Option {
	return func(o *options) {
		o.store = opts
	}
}

// WithSaveParams replaces the persisted field groups of the kind pipeline.
func WithSaveParams(kind features.FilterBank, params ...features.SaveParam) Option {
	return func(o *options) {
		o.saves[kind] = slices.Clone(params)
	}
}

// WithPipelineOptions passes extra options through to both pipelines.
func WithPipelineOptions(opts ...features.PipelineOption) Option {
	return func(o *options) {
		o.pipeline = append(o.pipeline, opts...)
	}
}

// New builds both pipelines from settings.
func New(patterns Patterns, settings features.Settings, opts ...Option) (*Extractor, error) {
	o := options{
		logger: logging.NewNop(),
		saves: map[features.FilterBank][]features.SaveParam{
			features.FilterBankLinear: {features.SaveCep, features.SaveFB},
			features.FilterBankLog:    {features.SaveVAD, features.SaveEnergy, features.SaveCep, features.SaveFB},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := patterns.validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	pipeOpts := append([]features.PipelineOption{
		features.WithLogger(o.logger),
		features.WithStoreOptions(o.store),
	}, o.pipeline...)

	linear, err := features.NewPipeline(features.Params{
		Settings:        settings,
		Kind:            features.FilterBankLinear,
		HigherFrequency: settings.Nyquist(),
		Save:            o.saves[features.FilterBankLinear],
		Input:           patterns.Input,
		Output:          patterns.Linear,
	}, pipeOpts...)
	if err != nil {
		return nil, err
	}
	mel, err := features.NewPipeline(features.Params{
		Settings:        settings,
		Kind:            features.FilterBankLog,
		HigherFrequency: settings.HigherFrequencyMel,
		Save:            o.saves[features.FilterBankLog],
		Input:           patterns.Input,
		Output:          patterns.Mel,
	}, pipeOpts...)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		patterns: patterns,
		linear:   linear,
		mel:      mel,
		logger:   logging.NewComponentLogger(o.logger, "dualbank"),
	}, nil
}

func (p Patterns) validate() error {
	fields := []struct {
		name  string
		value features.Pattern
	}{
		{"input", p.Input},
		{"linear output", p.Linear},
		{"mel output", p.Mel},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value.String()) == "" {
			return services.Wrap(services.ErrConfiguration, "dualbank", "new", f.name+" pattern is empty", nil)
		}
	}
	if p.Linear == p.Mel {
		return services.Wrap(services.ErrConfiguration, "dualbank", "new",
			fmt.Sprintf("linear and mel output patterns are both %q", p.Linear), nil)
	}
	return nil
}

// Patterns returns the configured filename templates.
func (e *Extractor) Patterns() Patterns {
	return e.patterns
}

// Linear returns the linear pipeline parameters.
func (e *Extractor) Linear() features.Params {
	return e.linear.Params()
}

// Mel returns the log pipeline parameters.
func (e *Extractor) Mel() features.Params {
	return e.mel.Params()
}

// Features returns the set built by the last successful extraction.
func (e *Extractor) Features() FeatureSet {
	return e.features
}

// Extract reads channel 0 of every identifier.
func (e *Extractor) Extract(ctx context.Context, ids []string) (FeatureSet, error) {
	return e.ExtractSources(ctx, features.Sources(ids))
}

// ExtractSources runs both pipelines over sources and reads the results back.
// On error the previously extracted set is kept.
func (e *Extractor) ExtractSources(ctx context.Context, sources []features.Source) (FeatureSet, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx = services.WithRunID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("feature extraction started",
		logging.Int("identifiers", len(sources)),
		logging.String("linear_output", e.patterns.Linear.String()),
		logging.String("mel_output", e.patterns.Mel.String()),
	)

	for _, p := range []*features.Pipeline{e.linear, e.mel} {
		if err := p.SaveList(ctx, sources); err != nil {
			logger.Error("pipeline failed",
				logging.String(logging.FieldPipeline, string(p.Kind())),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
			return nil, err
		}
	}

	set := make(FeatureSet, len(sources))
	for _, src := range sources {
		rec, err := e.readBack(ctx, src.ID)
		if err != nil {
			logger.Error("read back failed",
				logging.String(logging.FieldIdentifier, src.ID),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
			return nil, err
		}
		set[src.ID] = rec
	}
	e.features = set

	logger.Info("feature extraction completed",
		logging.Int("identifiers", len(set)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return set, nil
}

func (e *Extractor) readBack(ctx context.Context, id string) (Record, error) {
	lin, err := readRenamed(ctx, e.patterns.Linear.Resolve(id), id, keymap.Linear)
	if err != nil {
		return nil, err
	}
	mel, err := readRenamed(ctx, e.patterns.Mel.Resolve(id), id, keymap.Log)
	if err != nil {
		return nil, err
	}
	return keymap.Merge(lin, mel), nil
}

func readRenamed(ctx context.Context, path, id string, kind keymap.Kind) (Record, error) {
	stage := string(kind)
	store, err := featstore.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "open store", path, err)
	}
	defer store.Close()

	raw, err := store.ReadAll(ctx, id)
	if err != nil {
		if errors.Is(err, featstore.ErrShowNotFound) {
			return nil, services.Wrap(services.ErrMissingRecord, stage, "read", fmt.Sprintf("identifier %q in %s", id, path), err)
		}
		return nil, services.Wrap(services.ErrStorage, stage, "read", fmt.Sprintf("identifier %q in %s", id, path), err)
	}
	renamed, err := keymap.Rename(kind, Record(raw))
	if err != nil {
		return nil, fmt.Errorf("identifier %q: %w", id, err)
	}
	return renamed, nil
}
