package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cepstra/internal/featstore"
	"cepstra/internal/features"
)

type inspectOptions struct {
	decode bool
	json   bool
}

type inspectField struct {
	Name  string   `json:"name"`
	DType string   `json:"dtype"`
	Shape []int    `json:"shape"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
}

type inspectShow struct {
	ID     string `json:"id"`
	Fields int    `json:"fields"`
}

func newInspectCommand() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:         "inspect <store> [id]",
		Short:       "List identifiers in a feature store or the fields of one identifier",
		Args:        cobra.RangeArgs(1, 2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := featstore.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return inspectShows(cmd, store, opts)
			}
			return inspectRecord(cmd, store, args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.decode, "decode", false, "Decompress percentile-coded fields before computing statistics")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table")
	return cmd
}

func inspectShows(cmd *cobra.Command, store *featstore.Store, opts inspectOptions) error {
	ctx := cmd.Context()
	ids, err := store.Shows(ctx)
	if err != nil {
		return err
	}
	shows := make([]inspectShow, 0, len(ids))
	for _, id := range ids {
		names, err := store.Fields(ctx, id)
		if err != nil {
			return err
		}
		shows = append(shows, inspectShow{ID: id, Fields: len(names)})
	}
	if opts.json {
		return writeJSON(cmd, shows)
	}

	out := cmd.OutOrStdout()
	if len(shows) == 0 {
		fmt.Fprintf(out, "%s holds no identifiers\n", store.Path())
		return nil
	}
	rows := make([][]string, 0, len(shows))
	for _, s := range shows {
		rows = append(rows, []string{s.ID, strconv.Itoa(s.Fields)})
	}
	fmt.Fprintln(out, renderTable(out, []string{"ID", "Fields"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}

func inspectRecord(cmd *cobra.Command, store *featstore.Store, id string, opts inspectOptions) error {
	rec, err := store.ReadAll(cmd.Context(), id)
	if err != nil {
		return err
	}

	fields := make([]inspectField, 0, len(rec))
	for _, name := range sortedKeys(rec) {
		arr := rec[name]
		if opts.decode && !isCompressionSidecar(name) {
			decoded, err := features.DecompressField(rec, name)
			if err != nil {
				return fmt.Errorf("decode %s: %w", name, err)
			}
			arr = decoded
		}
		f := inspectField{Name: name, DType: string(arr.DType), Shape: arr.Shape}
		if len(arr.Data) > 0 {
			lo, hi, mean := arrayStats(arr.Data)
			f.Min, f.Max, f.Mean = &lo, &hi, &mean
		}
		fields = append(fields, f)
	}
	if opts.json {
		return writeJSON(cmd, fields)
	}

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{
			f.Name,
			f.DType,
			formatShape(f.Shape),
			formatStat(f.Min),
			formatStat(f.Max),
			formatStat(f.Mean),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Field", "DType", "Shape", "Min", "Max", "Mean"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func isCompressionSidecar(name string) bool {
	return strings.HasSuffix(name, "_header") || strings.HasSuffix(name, "_min_range")
}

func arrayStats(data []float64) (float64, float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	return lo, hi, sum / float64(len(data))
}

func formatShape(shape []int) string {
	if len(shape) == 0 {
		return "scalar"
	}
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	return strings.Join(dims, "x")
}

func formatStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 5, 64)
}
