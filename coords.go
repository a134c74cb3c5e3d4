package linmod

// Labeled coordinates and data arrays. This is the minimal labeled-array
// primitive the modeling layer is built on: ordered dimensions carrying
// string labels, row-major flattening, and outer-join broadcasting. Values
// at positions one operand does not cover are filled (zero for
// coefficients, NaN for solution data).

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Dim is a single named dimension with its ordered labels.
type Dim struct {
	Name   string
	Labels []string
}

// Coords is an ordered set of dimensions. The zero value is a valid scalar
// coordinate space of size one.
type Coords struct {
	dims []Dim
}

// NewCoords builds a coordinate space from the given dimensions.
func NewCoords(dims ...Dim) Coords {
	c := Coords{dims: make([]Dim, len(dims))}
	copy(c.dims, dims)
	return c
}

// RangeDim is a convenience constructor for a dimension labeled "0".."n-1".
func RangeDim(name string, n int) Dim {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i)
	}
	return Dim{Name: name, Labels: labels}
}

// validate checks for duplicate dimension names, duplicate labels within a
// dimension, and empty dimensions.
func (c Coords) validate() error {
	seen := make(map[string]bool, len(c.dims))
	for _, d := range c.dims {
		if d.Name == "" {
			return errors.Errorf("coords: dimension with empty name")
		}
		if seen[d.Name] {
			return errors.Errorf("coords: duplicate dimension %q", d.Name)
		}
		seen[d.Name] = true
		if len(d.Labels) == 0 {
			return errors.Errorf("coords: dimension %q has no labels", d.Name)
		}
		lseen := make(map[string]bool, len(d.Labels))
		for _, l := range d.Labels {
			if lseen[l] {
				return errors.Errorf("coords: duplicate label %q in dimension %q", l, d.Name)
			}
			lseen[l] = true
		}
	}
	return nil
}

// NDim returns the number of dimensions.
func (c Coords) NDim() int { return len(c.dims) }

// Shape returns the per-dimension sizes.
func (c Coords) Shape() []int {
	shape := make([]int, len(c.dims))
	for i, d := range c.dims {
		shape[i] = len(d.Labels)
	}
	return shape
}

// Size returns the total number of positions (one for a scalar space).
func (c Coords) Size() int {
	n := 1
	for _, d := range c.dims {
		n *= len(d.Labels)
	}
	return n
}

// Dims returns the dimension names in order.
func (c Coords) Dims() []string {
	names := make([]string, len(c.dims))
	for i, d := range c.dims {
		names[i] = d.Name
	}
	return names
}

// dimIndex returns the position of the named dimension, or -1.
func (c Coords) dimIndex(name string) int {
	for i, d := range c.dims {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// ravel converts a multi-index to a flat row-major position.
func (c Coords) ravel(idx []int) int {
	pos := 0
	for i, d := range c.dims {
		pos = pos*len(d.Labels) + idx[i]
	}
	return pos
}

// unravel fills idx with the multi-index of flat position pos.
func (c Coords) unravel(pos int, idx []int) {
	for i := len(c.dims) - 1; i >= 0; i-- {
		n := len(c.dims[i].Labels)
		idx[i] = pos % n
		pos /= n
	}
}

// Equal reports whether two coordinate spaces have identical dimensions and
// labels in identical order.
func (c Coords) Equal(o Coords) bool {
	if len(c.dims) != len(o.dims) {
		return false
	}
	for i, d := range c.dims {
		if d.Name != o.dims[i].Name || len(d.Labels) != len(o.dims[i].Labels) {
			return false
		}
		for j, l := range d.Labels {
			if l != o.dims[i].Labels[j] {
				return false
			}
		}
	}
	return true
}

// labelIndex builds a label→position map for one dimension.
func labelIndex(d Dim) map[string]int {
	m := make(map[string]int, len(d.Labels))
	for i, l := range d.Labels {
		m[l] = i
	}
	return m
}

// broadcastCoords computes the outer join of two coordinate spaces: the
// dimensions of a in order, followed by the dimensions of b not present in
// a. Shared dimensions take the union of labels, a's labels first.
func broadcastCoords(a, b Coords) Coords {
	out := Coords{}
	for _, d := range a.dims {
		merged := Dim{Name: d.Name, Labels: append([]string(nil), d.Labels...)}
		if j := b.dimIndex(d.Name); j >= 0 {
			have := labelIndex(d)
			for _, l := range b.dims[j].Labels {
				if _, ok := have[l]; !ok {
					merged.Labels = append(merged.Labels, l)
				}
			}
		}
		out.dims = append(out.dims, merged)
	}
	for _, d := range b.dims {
		if a.dimIndex(d.Name) < 0 {
			out.dims = append(out.dims, Dim{Name: d.Name, Labels: append([]string(nil), d.Labels...)})
		}
	}
	return out
}

// indexerFrom maps every flat position of c to the corresponding flat
// position in src, or -1 where src has no matching labels. Dimensions of
// src missing from c are an error; dimensions of c missing from src are
// broadcast over.
func (c Coords) indexerFrom(src Coords) ([]int, error) {
	type dimMap struct {
		cDim   int
		lookup map[string]int
	}
	maps := make([]dimMap, len(src.dims))
	for i, d := range src.dims {
		j := c.dimIndex(d.Name)
		if j < 0 {
			return nil, errors.Errorf("coords: dimension %q not present in broadcast target", d.Name)
		}
		maps[i] = dimMap{cDim: j, lookup: labelIndex(d)}
	}

	out := make([]int, c.Size())
	idx := make([]int, len(c.dims))
	srcIdx := make([]int, len(src.dims))
	for pos := range out {
		c.unravel(pos, idx)
		found := true
		for i, m := range maps {
			label := c.dims[m.cDim].Labels[idx[m.cDim]]
			k, ok := m.lookup[label]
			if !ok {
				found = false
				break
			}
			srcIdx[i] = k
		}
		if found {
			out[pos] = src.ravel(srcIdx)
		} else {
			out[pos] = -1
		}
	}
	return out, nil
}

// DataArray is a labeled array of float64 values over a coordinate space.
type DataArray struct {
	coords Coords
	values []float64
}

// NewDataArray builds a data array; the value slice length must match the
// coordinate space size.
// In case of failure, function returns an error.
func NewDataArray(c Coords, values []float64) (*DataArray, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if len(values) != c.Size() {
		return nil, errors.Errorf("data array: %d values for coordinate space of size %d", len(values), c.Size())
	}
	v := make([]float64, len(values))
	copy(v, values)
	return &DataArray{coords: c, values: v}, nil
}

// Scalar returns a zero-dimensional data array holding a single value.
// Scalars broadcast against any coordinate space.
func Scalar(v float64) *DataArray {
	return &DataArray{values: []float64{v}}
}

// Full returns a data array over c with every position set to v.
func Full(c Coords, v float64) *DataArray {
	values := make([]float64, c.Size())
	for i := range values {
		values[i] = v
	}
	return &DataArray{coords: c, values: values}
}

// Coords returns the coordinate space of the array.
func (a *DataArray) Coords() Coords { return a.coords }

// Values returns the flat row-major values. The slice is owned by the
// array and must not be modified.
func (a *DataArray) Values() []float64 { return a.values }

// Size returns the number of positions.
func (a *DataArray) Size() int { return len(a.values) }

// At returns the value at the given multi-index.
func (a *DataArray) At(idx ...int) float64 {
	return a.values[a.coords.ravel(idx)]
}

// Item returns the single value of a scalar array.
// In case of failure, function returns an error.
func (a *DataArray) Item() (float64, error) {
	if len(a.values) != 1 {
		return 0, errors.Errorf("data array: Item on array of size %d", len(a.values))
	}
	return a.values[0], nil
}

// Scale returns a new array with every value multiplied by f.
func (a *DataArray) Scale(f float64) *DataArray {
	out := &DataArray{coords: a.coords, values: append([]float64(nil), a.values...)}
	floats.Scale(f, out.values)
	return out
}

// AddConst returns a new array with f added to every value.
func (a *DataArray) AddConst(f float64) *DataArray {
	out := &DataArray{coords: a.coords, values: append([]float64(nil), a.values...)}
	floats.AddConst(f, out.values)
	return out
}

// Add returns the elementwise sum of two arrays over the broadcast of
// their coordinate spaces; positions covered by only one operand take the
// other operand as zero.
// In case of failure, function returns an error.
func (a *DataArray) Add(b *DataArray) (*DataArray, error) {
	if a.coords.Equal(b.coords) {
		out := &DataArray{coords: a.coords, values: append([]float64(nil), a.values...)}
		floats.Add(out.values, b.values)
		return out, nil
	}
	bc := broadcastCoords(a.coords, b.coords)
	av, err := a.broadcastTo(bc, 0)
	if err != nil {
		return nil, err
	}
	bv, err := b.broadcastTo(bc, 0)
	if err != nil {
		return nil, err
	}
	floats.Add(av.values, bv.values)
	return av, nil
}

// broadcastTo expands the array onto the target coordinate space, placing
// fill at positions the source does not cover.
// In case of failure, function returns an error.
func (a *DataArray) broadcastTo(c Coords, fill float64) (*DataArray, error) {
	if a.coords.Equal(c) {
		return &DataArray{coords: c, values: append([]float64(nil), a.values...)}, nil
	}
	indexer, err := c.indexerFrom(a.coords)
	if err != nil {
		return nil, err
	}
	values := make([]float64, c.Size())
	for pos, src := range indexer {
		if src >= 0 {
			values[pos] = a.values[src]
		} else {
			values[pos] = fill
		}
	}
	return &DataArray{coords: c, values: values}, nil
}

// String renders the array for debugging; NaN positions print as ".".
func (a *DataArray) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DataArray%v [", a.coords.Dims())
	for i, v := range a.values {
		if i > 0 {
			sb.WriteString(" ")
		}
		if math.IsNaN(v) {
			sb.WriteString(".")
		} else {
			fmt.Fprintf(&sb, "%g", v)
		}
	}
	sb.WriteString("]")
	return sb.String()
}
