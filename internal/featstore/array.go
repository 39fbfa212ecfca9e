package featstore

import (
	"fmt"
	"math"
	"slices"
)

// DType names the on-disk element encoding of an Array.
type DType string

const (
	Float64 DType = "float64"
	Float32 DType = "float32"
	Float16 DType = "float16"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Bool    DType = "bool"
)

// Size returns the encoded width of one element in bytes, or 0 for unknown types.
func (d DType) Size() int {
	switch d {
	case Float64:
		return 8
	case Float32:
		return 4
	case Float16, Uint16:
		return 2
	case Uint8, Bool:
		return 1
	default:
		return 0
	}
}

// IsFloat reports whether the dtype stores floating point values.
func (d DType) IsFloat() bool {
	return d == Float64 || d == Float32 || d == Float16
}

// Valid reports whether d is a known dtype.
func (d DType) Valid() bool {
	return d.Size() > 0
}

// ParseDType resolves a dtype name.
func ParseDType(value string) (DType, error) {
	d := DType(value)
	if !d.Valid() {
		return "", fmt.Errorf("unknown dtype %q", value)
	}
	return d, nil
}

// Array is an N-dimensional row-major numeric array. An empty Shape denotes a
// scalar holding exactly one value.
type Array struct {
	DType DType
	Shape []int
	Data  []float64
}

// NewArray validates that data fills shape and returns the Array.
func NewArray(dtype DType, shape []int, data []float64) (Array, error) {
	if !dtype.Valid() {
		return Array{}, fmt.Errorf("unknown dtype %q", dtype)
	}
	want, err := shapeLen(shape)
	if err != nil {
		return Array{}, err
	}
	if len(data) != want {
		return Array{}, fmt.Errorf("array shape %v needs %d values, got %d", shape, want, len(data))
	}
	return Array{DType: dtype, Shape: slices.Clone(shape), Data: data}, nil
}

// Vector builds a 1-D Array.
func Vector(dtype DType, data []float64) Array {
	return Array{DType: dtype, Shape: []int{len(data)}, Data: data}
}

// Scalar builds a 0-D Array.
func Scalar(dtype DType, value float64) Array {
	return Array{DType: dtype, Shape: []int{}, Data: []float64{value}}
}

// Matrix builds a 2-D Array from equal-length rows.
func Matrix(dtype DType, rows [][]float64) (Array, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Array{}, fmt.Errorf("matrix row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return Array{DType: dtype, Shape: []int{len(rows), cols}, Data: data}, nil
}

// Len returns the number of elements implied by the shape.
func (a Array) Len() int {
	n, err := shapeLen(a.Shape)
	if err != nil {
		return 0
	}
	return n
}

// Rows returns the size of the leading dimension; scalars count as one row.
func (a Array) Rows() int {
	if len(a.Shape) == 0 {
		return 1
	}
	return a.Shape[0]
}

// Cols returns the product of every dimension after the first.
func (a Array) Cols() int {
	if len(a.Shape) <= 1 {
		return 1
	}
	n, _ := shapeLen(a.Shape[1:])
	return n
}

// Row returns a view of row i.
func (a Array) Row(i int) []float64 {
	cols := a.Cols()
	return a.Data[i*cols : (i+1)*cols]
}

// Equal reports whether both arrays carry the same dtype, shape, and values.
// NaN values compare equal to each other.
func (a Array) Equal(b Array) bool {
	if a.DType != b.DType || !slices.Equal(a.Shape, b.Shape) || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		x, y := a.Data[i], b.Data[i]
		if x == y || (math.IsNaN(x) && math.IsNaN(y)) {
			continue
		}
		return false
	}
	return true
}

// String renders a compact description such as "float32[98 20]".
func (a Array) String() string {
	return fmt.Sprintf("%s%v", a.DType, a.Shape)
}

func shapeLen(shape []int) (int, error) {
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= dim
	}
	return n, nil
}
