package features

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"cepstra/internal/featstore"
)

// percentiles stored per column in a percentile header.
var headerPercentiles = [4]float64{0, 25, 75, 100}

// columnStats returns per-column means and population standard deviations
// over the rows selected by mask. A nil or all-false mask selects every row.
func columnStats(arr featstore.Array, mask []bool) ([]float64, []float64) {
	rows, cols := arr.Rows(), arr.Cols()
	use := func(i int) bool { return true }
	if mask != nil && slices.Contains(mask, true) {
		use = func(i int) bool { return mask[i] }
	}

	mean := make([]float64, cols)
	std := make([]float64, cols)
	n := 0
	for i := 0; i < rows; i++ {
		if !use(i) {
			continue
		}
		n++
		for j, v := range arr.Row(i) {
			mean[j] += v
		}
	}
	if n == 0 {
		return mean, std
	}
	for j := range mean {
		mean[j] /= float64(n)
	}
	for i := 0; i < rows; i++ {
		if !use(i) {
			continue
		}
		for j, v := range arr.Row(i) {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(n))
	}
	return mean, std
}

// lowerPercentile follows numpy's "lower" interpolation on sorted data.
func lowerPercentile(sorted []float64, q float64) float64 {
	idx := int(math.Floor(q / 100 * float64(len(sorted)-1)))
	return sorted[idx]
}

func dataRange(data []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo, span
}

func dequantize(code, lo, span float64) float64 {
	return lo + span*code/65535
}

func segment(x, from, to float64) float64 {
	if to <= from {
		return 0
	}
	return (x - from) / (to - from)
}

// compressPercentile encodes arr into uint8 codes of the same shape, a
// (cols, 4) uint16 header of quantised 0/25/75/100 percentiles, and a float32
// [min, range] pair.
func compressPercentile(arr featstore.Array) (codes, header, minRange featstore.Array, err error) {
	rows, cols := arr.Rows(), arr.Cols()
	if rows == 0 || len(arr.Data) == 0 {
		return codes, header, minRange, errors.New("percentile compression of an empty array")
	}
	lo, span := dataRange(arr.Data)
	// min_range is persisted as float32; code against the stored values.
	lo, span = float64(float32(lo)), float64(float32(span))

	head := make([]float64, 0, cols*4)
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			column[i] = arr.Data[i*cols+j]
		}
		slices.Sort(column)
		for _, q := range headerPercentiles {
			p := lowerPercentile(column, q)
			code := math.Round((p - lo) / span * 65535)
			head = append(head, math.Min(65535, math.Max(0, code)))
		}
	}

	out := make([]float64, len(arr.Data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			h := head[j*4 : j*4+4]
			p0, p25 := dequantize(h[0], lo, span), dequantize(h[1], lo, span)
			p75, p100 := dequantize(h[2], lo, span), dequantize(h[3], lo, span)
			x := arr.Data[i*cols+j]
			var c float64
			switch {
			case x < p25:
				c = 64 * segment(x, p0, p25)
			case x < p75:
				c = 64 + 128*segment(x, p25, p75)
			default:
				c = 192 + 63*segment(x, p75, p100)
			}
			out[i*cols+j] = math.Min(255, math.Max(0, math.Round(c)))
		}
	}

	codes = featstore.Array{DType: featstore.Uint8, Shape: slices.Clone(arr.Shape), Data: out}
	header = featstore.Array{DType: featstore.Uint16, Shape: []int{cols, 4}, Data: head}
	minRange = featstore.Vector(featstore.Float32, []float64{lo, span})
	return codes, header, minRange, nil
}

// Decompress restores float values from percentile-compressed codes.
func Decompress(codes, header, minRange featstore.Array) (featstore.Array, error) {
	cols := codes.Cols()
	if len(minRange.Data) != 2 {
		return featstore.Array{}, fmt.Errorf("decompress: min_range has %d values, want 2", len(minRange.Data))
	}
	if len(header.Data) != cols*4 {
		return featstore.Array{}, fmt.Errorf("decompress: header has %d values for %d columns", len(header.Data), cols)
	}
	lo, span := minRange.Data[0], minRange.Data[1]

	out := make([]float64, len(codes.Data))
	for idx, c := range codes.Data {
		j := idx % cols
		h := header.Data[j*4 : j*4+4]
		p0, p25 := dequantize(h[0], lo, span), dequantize(h[1], lo, span)
		p75, p100 := dequantize(h[2], lo, span), dequantize(h[3], lo, span)
		switch {
		case c < 64:
			out[idx] = p0 + (p25-p0)*c/64
		case c < 192:
			out[idx] = p25 + (p75-p25)*(c-64)/128
		default:
			out[idx] = p75 + (p100-p75)*(c-192)/63
		}
	}
	return featstore.Array{DType: featstore.Float32, Shape: slices.Clone(codes.Shape), Data: out}, nil
}

// DecompressField restores field name from a record holding name, name_header
// and name_min_range. Records written without compression return the field
// unchanged.
func DecompressField(rec map[string]featstore.Array, name string) (featstore.Array, error) {
	codes, ok := rec[name]
	if !ok {
		return featstore.Array{}, fmt.Errorf("field %q not present", name)
	}
	header, hasHeader := rec[name+"_header"]
	minRange, hasRange := rec[name+"_min_range"]
	if !hasHeader || !hasRange {
		return codes, nil
	}
	return Decompress(codes, header, minRange)
}
