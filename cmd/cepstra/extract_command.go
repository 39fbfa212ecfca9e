package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cepstra/internal/dualbank"
	"cepstra/internal/featstore"
	"cepstra/internal/features"
)

type extractOptions struct {
	list      string
	channel   int
	input     string
	linOutput string
	melOutput string
	clean     bool
	json      bool
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [id...]",
		Short: "Extract linear and mel cepstral features for file identifiers",
		Long: `Extract runs the linear filter bank pipeline and then the log (mel) filter
bank pipeline over every identifier, reads both stores back, and prints one
merged record per identifier.

Identifiers come from the arguments and from --list, a file with one
identifier per line. A list line may carry a channel after the identifier
("speaker01 1"); blank lines and lines starting with # are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sources, err := collectSources(args, opts.list, opts.channel)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return errors.New("no identifiers given; pass ids as arguments or use --list")
			}

			patterns := cfg.Patterns()
			if v := strings.TrimSpace(opts.input); v != "" {
				patterns.Input = features.Pattern(v)
			}
			if v := strings.TrimSpace(opts.linOutput); v != "" {
				patterns.Linear = features.Pattern(v)
			}
			if v := strings.TrimSpace(opts.melOutput); v != "" {
				patterns.Mel = features.Pattern(v)
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			extractor, err := dualbank.New(patterns, cfg.Settings(),
				dualbank.WithLogger(logger),
				dualbank.WithStoreOptions(cfg.StoreOptions()),
			)
			if err != nil {
				return err
			}
			if opts.clean {
				if err := removeStores(patterns, sources); err != nil {
					return err
				}
			}

			set, err := extractor.ExtractSources(cmd.Context(), sources)
			if err != nil {
				return err
			}
			summaries := summarize(set)
			if opts.json {
				return writeJSON(cmd, summaries)
			}
			renderExtractSummary(cmd, summaries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.list, "list", "l", "", "File listing identifiers, one per line")
	cmd.Flags().IntVar(&opts.channel, "channel", 0, "Audio channel for identifiers without an explicit channel")
	cmd.Flags().StringVar(&opts.input, "input", "", "Override paths.input_pattern")
	cmd.Flags().StringVar(&opts.linOutput, "lin-output", "", "Override paths.linear_output_pattern")
	cmd.Flags().StringVar(&opts.melOutput, "mel-output", "", "Override paths.mel_output_pattern")
	cmd.Flags().BoolVar(&opts.clean, "clean", false, "Delete existing output stores before extracting")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print per-identifier field dtype and shape summaries as JSON")
	return cmd
}

func collectSources(args []string, listPath string, channel int) ([]features.Source, error) {
	if channel < 0 {
		return nil, fmt.Errorf("channel must not be negative, got %d", channel)
	}
	var sources []features.Source
	seen := make(map[string]struct{})
	add := func(src features.Source) {
		if _, ok := seen[src.ID]; ok {
			return
		}
		seen[src.ID] = struct{}{}
		sources = append(sources, src)
	}
	for _, arg := range args {
		if id := strings.TrimSpace(arg); id != "" {
			add(features.Source{ID: id, Channel: channel})
		}
	}
	if strings.TrimSpace(listPath) == "" {
		return sources, nil
	}

	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open identifier list: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		src := features.Source{ID: fields[0], Channel: channel}
		switch len(fields) {
		case 1:
		case 2:
			ch, err := strconv.Atoi(fields[1])
			if err != nil || ch < 0 {
				return nil, fmt.Errorf("%s:%d: invalid channel %q", listPath, line, fields[1])
			}
			src.Channel = ch
		default:
			return nil, fmt.Errorf("%s:%d: expected \"id [channel]\", got %q", listPath, line, text)
		}
		add(src)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifier list: %w", err)
	}
	return sources, nil
}

// removeStores deletes the store files the patterns resolve to, with any
// rollback journal.
func removeStores(patterns dualbank.Patterns, sources []features.Source) error {
	seen := make(map[string]struct{})
	for _, src := range sources {
		for _, p := range []features.Pattern{patterns.Linear, patterns.Mel} {
			path := p.Resolve(src.ID)
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			for _, target := range []string{path, path + "-journal"} {
				if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("remove %s: %w", target, err)
				}
			}
		}
	}
	return nil
}

type fieldSummary struct {
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
}

type recordSummary struct {
	ID     string                  `json:"id"`
	Frames int                     `json:"frames"`
	Voiced int                     `json:"voiced"`
	Fields map[string]fieldSummary `json:"fields"`
}

func summarize(set dualbank.FeatureSet) []recordSummary {
	out := make([]recordSummary, 0, len(set))
	for _, id := range set.IDs() {
		rec := set[id]
		summary := recordSummary{ID: id, Fields: make(map[string]fieldSummary, len(rec))}
		for name, arr := range rec {
			summary.Fields[name] = fieldSummary{DType: string(arr.DType), Shape: arr.Shape}
		}
		if vad, ok := rec["vad"]; ok {
			summary.Frames = vad.Len()
			summary.Voiced = countVoiced(vad)
		}
		out = append(out, summary)
	}
	return out
}

func countVoiced(vad featstore.Array) int {
	n := 0
	for _, v := range vad.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

func renderExtractSummary(cmd *cobra.Command, summaries []recordSummary) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.ID,
			strconv.Itoa(len(s.Fields)),
			strconv.Itoa(s.Frames),
			strconv.Itoa(s.Voiced),
			shapeLabel(s.Fields["MFCC"]),
			shapeLabel(s.Fields["LFCC"]),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"ID", "Fields", "Frames", "Voiced", "MFCC", "LFCC"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func shapeLabel(f fieldSummary) string {
	if f.DType == "" {
		return "-"
	}
	dims := make([]string, len(f.Shape))
	for i, d := range f.Shape {
		dims[i] = strconv.Itoa(d)
	}
	return fmt.Sprintf("%s (%s)", f.DType, strings.Join(dims, "x"))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
