package features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"cepstra/internal/audio"
	"cepstra/internal/featstore"
	"cepstra/internal/logging"
	"cepstra/internal/services"
)

// Record maps a pipeline-internal field name to its array.
type Record map[string]featstore.Array

// Loader decodes one channel of an audio file.
type Loader func(path string, channel int) (audio.Signal, error)

// Pipeline computes and persists features for one filter bank configuration.
type Pipeline struct {
	params   Params
	analyzer *analyzer
	store    featstore.Options
	logger   *slog.Logger
	load     Loader
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithStoreOptions sets the options used when creating output stores.
func WithStoreOptions(opts featstore.Options) PipelineOption {
	return func(p *Pipeline) {
		p.store = opts
	}
}

// WithLoader replaces the audio decoder (for testing).
func WithLoader(load Loader) PipelineOption {
	return func(p *Pipeline) {
		if load != nil {
			p.load = load
		}
	}
}

// NewPipeline validates params and precomputes the filter bank tables.
func NewPipeline(params Params, opts ...PipelineOption) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.Save = slices.Clone(params.Save)
	p := &Pipeline{
		params:   params,
		analyzer: newAnalyzer(params),
		logger:   logging.NewNop(),
		load:     audio.Load,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline."+string(params.Kind))
	return p, nil
}

// Params returns a copy of the pipeline parameters.
func (p *Pipeline) Params() Params {
	out := p.params
	out.Save = slices.Clone(p.params.Save)
	return out
}

// Kind returns the filter bank kind.
func (p *Pipeline) Kind() FilterBank {
	return p.params.Kind
}

// FilterBankWeights returns a copy of the triangular filter weights, one row
// per filter over nfft/2+1 spectrum bins.
func (p *Pipeline) FilterBankWeights() [][]float64 {
	out := make([][]float64, len(p.analyzer.bank))
	for i, row := range p.analyzer.bank {
		out[i] = slices.Clone(row)
	}
	return out
}

// Compute extracts every saved field from one decoded channel.
func (p *Pipeline) Compute(sig audio.Signal) (Record, error) {
	params := p.params
	if sig.SampleRate != params.SamplingFrequency {
		return nil, fmt.Errorf("sample rate %d Hz does not match configured %d Hz", sig.SampleRate, params.SamplingFrequency)
	}
	a := p.analyzer
	nframes := params.FrameCount(len(sig.Samples))
	if nframes == 0 {
		return nil, fmt.Errorf("%d samples is shorter than one %d-sample analysis window", len(sig.Samples), a.win)
	}

	var labels []bool
	switch params.VAD {
	case VADNone:
		labels = make([]bool, nframes)
		for i := range labels {
			labels[i] = true
		}
	default:
		labels = snrLabels(sig.Samples, a.win, a.hop, nframes, params.SNR)
	}

	emphasised := preEmphasis(sig.Samples, params.PreEmphasis)
	energy := make([]float64, 0, nframes)
	fb := make([]float64, 0, nframes*params.FilterBankSize)
	cep := make([]float64, 0, nframes*params.CepsNumber)
	kept := 0
	for f := 0; f < nframes; f++ {
		if !params.KeepAllFeatures && !labels[f] {
			continue
		}
		e, bands, ceps := a.frame(emphasised[f*a.hop : f*a.hop+a.win])
		energy = append(energy, e)
		fb = append(fb, bands...)
		cep = append(cep, ceps...)
		kept++
	}
	if kept == 0 {
		return nil, errors.New("no voiced frames left after voice-activity trimming")
	}

	// Statistics follow voiced frames; after trimming every kept row is voiced.
	var mask []bool
	if params.KeepAllFeatures {
		mask = labels
	}

	rec := make(Record)
	if params.Saves(SaveVAD) {
		flags := make([]float64, nframes)
		for i, v := range labels {
			if v {
				flags[i] = 1
			}
		}
		rec["vad"] = featstore.Vector(featstore.Bool, flags)
	}
	groups := []struct {
		param SaveParam
		arr   featstore.Array
	}{
		{SaveEnergy, featstore.Vector(featstore.Float64, energy)},
		{SaveCep, featstore.Array{DType: featstore.Float64, Shape: []int{kept, params.CepsNumber}, Data: cep}},
		{SaveFB, featstore.Array{DType: featstore.Float64, Shape: []int{kept, params.FilterBankSize}, Data: fb}},
	}
	for _, g := range groups {
		if !params.Saves(g.param) {
			continue
		}
		if err := p.addField(rec, string(g.param), g.arr, mask); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (p *Pipeline) addField(rec Record, name string, arr featstore.Array, mask []bool) error {
	mean, std := columnStats(arr, mask)
	if len(arr.Shape) == 1 {
		rec[name+"_mean"] = featstore.Scalar(featstore.Float64, mean[0])
		rec[name+"_std"] = featstore.Scalar(featstore.Float64, std[0])
	} else {
		rec[name+"_mean"] = featstore.Vector(featstore.Float64, mean)
		rec[name+"_std"] = featstore.Vector(featstore.Float64, std)
	}

	if p.params.Compression != CompressionPercentile {
		rec[name] = arr
		return nil
	}
	codes, header, minRange, err := compressPercentile(arr)
	if err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	rec[name] = codes
	rec[name+"_header"] = header
	rec[name+"_min_range"] = minRange
	return nil
}

// Extract decodes and computes one source without persisting it.
func (p *Pipeline) Extract(src Source) (Record, error) {
	stage := string(p.params.Kind)
	path := p.params.Input.Resolve(src.ID)
	sig, err := p.load(path, src.Channel)
	if err != nil {
		if !services.IsMarked(err) {
			return nil, services.Wrap(services.ErrExtraction, stage, "load", fmt.Sprintf("identifier %q", src.ID), err)
		}
		return nil, fmt.Errorf("%s: identifier %q: %w", stage, src.ID, err)
	}
	rec, err := p.Compute(sig)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, stage, "compute", fmt.Sprintf("identifier %q", src.ID), err)
	}
	return rec, nil
}

// SaveList computes every source and writes its record to the store resolved
// from the output pattern. Sources that fail are skipped; all failures are
// returned joined once the whole batch has been attempted.
func (p *Pipeline) SaveList(ctx context.Context, sources []Source) error {
	stage := string(p.params.Kind)
	ctx = services.WithPipeline(ctx, stage)
	logger := logging.WithContext(ctx, p.logger)

	order := make([]string, 0, len(sources))
	groups := make(map[string][]Source)
	for _, src := range sources {
		path := p.params.Output.Resolve(src.ID)
		if _, ok := groups[path]; !ok {
			order = append(order, path)
		}
		groups[path] = append(groups[path], src)
	}

	var errs []error
	for _, path := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.saveGroup(ctx, logger, path, groups[path]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) saveGroup(ctx context.Context, logger *slog.Logger, path string, sources []Source) error {
	stage := string(p.params.Kind)
	store, err := featstore.Create(path, p.store)
	if err != nil {
		ids := make([]string, len(sources))
		for i, src := range sources {
			ids[i] = src.ID
		}
		return services.Wrap(services.ErrStorage, stage, "create store", fmt.Sprintf("%s for %q", path, ids), err)
	}
	defer store.Close()

	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		idCtx := services.WithIdentifier(ctx, src.ID)
		rec, err := p.Extract(src)
		if err != nil {
			logging.WithContext(idCtx, p.logger).Warn("feature extraction failed", logging.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := store.Write(ctx, src.ID, rec); err != nil {
			errs = append(errs, services.Wrap(services.ErrStorage, stage, "write", fmt.Sprintf("identifier %q to %s", src.ID, path), err))
			continue
		}
		logging.WithContext(idCtx, p.logger).Debug("features saved",
			logging.String("store", path),
			logging.Int("fields", len(rec)),
			logging.Int("channel", src.Channel),
		)
	}
	logger.Debug("store written", logging.String("store", path), logging.Int("identifiers", len(sources)))
	return errors.Join(errs...)
}
