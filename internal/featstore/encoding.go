package featstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
)

// storedDType returns the dtype an array is written with. Floating point arrays
// adopt the store precision; integer and boolean arrays keep their own dtype.
func storedDType(a Array, precision DType) DType {
	if a.DType.IsFloat() && precision.IsFloat() {
		return precision
	}
	return a.DType
}

func encodeData(data []float64, dtype DType) ([]byte, error) {
	size := dtype.Size()
	if size == 0 {
		return nil, fmt.Errorf("encode: unknown dtype %q", dtype)
	}
	buf := make([]byte, len(data)*size)
	for i, v := range data {
		off := i * size
		switch dtype {
		case Float64:
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		case Float32:
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
		case Float16:
			binary.LittleEndian.PutUint16(buf[off:], float16.Fromfloat32(float32(v)).Bits())
		case Uint16:
			u, err := toUnsigned(v, math.MaxUint16)
			if err != nil {
				return nil, fmt.Errorf("encode element %d: %w", i, err)
			}
			binary.LittleEndian.PutUint16(buf[off:], uint16(u))
		case Uint8:
			u, err := toUnsigned(v, math.MaxUint8)
			if err != nil {
				return nil, fmt.Errorf("encode element %d: %w", i, err)
			}
			buf[off] = byte(u)
		case Bool:
			if v != 0 {
				buf[off] = 1
			}
		}
	}
	return buf, nil
}

func decodeData(blob []byte, dtype DType, count int) ([]float64, error) {
	size := dtype.Size()
	if size == 0 {
		return nil, fmt.Errorf("decode: unknown dtype %q", dtype)
	}
	if len(blob) != count*size {
		return nil, fmt.Errorf("decode: %d bytes for %d %s elements", len(blob), count, dtype)
	}
	out := make([]float64, count)
	for i := range out {
		off := i * size
		switch dtype {
		case Float64:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[off:]))
		case Float32:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[off:])))
		case Float16:
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(blob[off:])).Float32())
		case Uint16:
			out[i] = float64(binary.LittleEndian.Uint16(blob[off:]))
		case Uint8:
			out[i] = float64(blob[off])
		case Bool:
			if blob[off] != 0 {
				out[i] = 1
			}
		}
	}
	return out, nil
}

func toUnsigned(v float64, limit float64) (uint64, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("NaN is not representable as an integer")
	}
	r := math.Round(v)
	if r < 0 || r > limit {
		return 0, fmt.Errorf("value %g outside [0, %g]", v, limit)
	}
	return uint64(r), nil
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, dim := range shape {
		parts[i] = strconv.Itoa(dim)
	}
	return strings.Join(parts, ",")
}

func parseShape(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []int{}, nil
	}
	parts := strings.Split(value, ",")
	shape := make([]int, len(parts))
	for i, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || dim < 0 {
			return nil, fmt.Errorf("invalid shape %q", value)
		}
		shape[i] = dim
	}
	return shape, nil
}
