package features

import (
	"math"
	"math/rand/v2"
	"testing"

	"cepstra/internal/featstore"
)

func randomMatrix(rows, cols int) featstore.Array {
	rng := rand.New(rand.NewPCG(7, 11))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()*3 + float64(i%cols)
	}
	return featstore.Array{DType: featstore.Float64, Shape: []int{rows, cols}, Data: data}
}

func TestCompressPercentileShapes(t *testing.T) {
	arr := randomMatrix(98, 20)
	codes, header, minRange, err := compressPercentile(arr)
	if err != nil {
		t.Fatalf("compressPercentile: %v", err)
	}
	if codes.DType != featstore.Uint8 || codes.Rows() != 98 || codes.Cols() != 20 {
		t.Fatalf("unexpected codes %s", codes)
	}
	if header.DType != featstore.Uint16 || header.Rows() != 20 || header.Cols() != 4 {
		t.Fatalf("unexpected header %s", header)
	}
	if minRange.DType != featstore.Float32 || len(minRange.Data) != 2 {
		t.Fatalf("unexpected min_range %s", minRange)
	}
	for _, c := range codes.Data {
		if c < 0 || c > 255 || c != math.Trunc(c) {
			t.Fatalf("code %g out of uint8 range", c)
		}
	}
	for _, h := range header.Data {
		if h < 0 || h > 65535 || h != math.Trunc(h) {
			t.Fatalf("header value %g out of uint16 range", h)
		}
	}
}

func TestCompressDecompressErrorBound(t *testing.T) {
	arr := randomMatrix(200, 8)
	codes, header, minRange, err := compressPercentile(arr)
	if err != nil {
		t.Fatalf("compressPercentile: %v", err)
	}
	restored, err := Decompress(codes, header, minRange)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	span := minRange.Data[1]
	bound := span / 63
	for i, v := range arr.Data {
		if diff := math.Abs(restored.Data[i] - v); diff > bound {
			t.Fatalf("element %d: restored %g from %g, diff %g exceeds %g", i, restored.Data[i], v, diff, bound)
		}
	}
}

func TestCompressConstantArray(t *testing.T) {
	arr := featstore.Vector(featstore.Float64, []float64{2.5, 2.5, 2.5})
	codes, header, minRange, err := compressPercentile(arr)
	if err != nil {
		t.Fatalf("compressPercentile: %v", err)
	}
	if minRange.Data[1] != 1 {
		t.Fatalf("expected unit range for constant data, got %g", minRange.Data[1])
	}
	restored, err := Decompress(codes, header, minRange)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	for i, v := range restored.Data {
		if v != 2.5 {
			t.Fatalf("element %d restored as %g", i, v)
		}
	}
}

func TestCompressEmpty(t *testing.T) {
	arr := featstore.Array{DType: featstore.Float64, Shape: []int{0, 4}}
	if _, _, _, err := compressPercentile(arr); err == nil {
		t.Fatal("expected error for empty array")
	}
}

func TestDecompressRejectsBadHeader(t *testing.T) {
	codes := featstore.Vector(featstore.Uint8, []float64{1, 2})
	header := featstore.Vector(featstore.Uint16, []float64{0, 1})
	minRange := featstore.Vector(featstore.Float32, []float64{0, 1})
	if _, err := Decompress(codes, header, minRange); err == nil {
		t.Fatal("expected header length error")
	}
	if _, err := Decompress(codes, featstore.Vector(featstore.Uint16, []float64{0, 1, 2, 3}), featstore.Scalar(featstore.Float32, 0)); err == nil {
		t.Fatal("expected min_range length error")
	}
}

func TestDecompressFieldPassthrough(t *testing.T) {
	raw := featstore.Vector(featstore.Float32, []float64{1, 2})
	got, err := DecompressField(map[string]featstore.Array{"energy": raw}, "energy")
	if err != nil {
		t.Fatalf("DecompressField: %v", err)
	}
	if !got.Equal(raw) {
		t.Fatalf("expected passthrough, got %v", got.Data)
	}
	if _, err := DecompressField(map[string]featstore.Array{}, "cep"); err == nil {
		t.Fatal("expected error for missing field")
	}
}

func TestColumnStatsMask(t *testing.T) {
	arr := featstore.Array{DType: featstore.Float64, Shape: []int{3, 2}, Data: []float64{1, 10, 3, 20, 100, 1000}}

	mean, std := columnStats(arr, []bool{true, true, false})
	if mean[0] != 2 || mean[1] != 15 {
		t.Fatalf("masked mean = %v", mean)
	}
	if std[0] != 1 || std[1] != 5 {
		t.Fatalf("masked std = %v", std)
	}

	all, _ := columnStats(arr, []bool{false, false, false})
	if all[0] != 104.0/3 {
		t.Fatalf("all-false mask should use every row, mean = %v", all)
	}
}
