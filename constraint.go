package linmod

// Constraints bind a linear left-hand side to a right-hand-side constant
// array through a relational sense. A Constraint starts unregistered (as
// produced by the comparison helpers) and becomes part of a model, with
// one integer label per position, through Model.AddConstraints.

import (
	"math"

	"github.com/pkg/errors"
)

// Sense is the relational sense of a constraint row.
type Sense byte

const (
	SenseLE Sense = 'L' // less than or equal
	SenseEQ Sense = 'E' // equal
	SenseGE Sense = 'G' // greater than or equal
)

// valid reports whether the sense is one of the three supported symbols.
func (s Sense) valid() bool {
	return s == SenseLE || s == SenseEQ || s == SenseGE
}

// String renders the sense as its comparison operator.
func (s Sense) String() string {
	switch s {
	case SenseLE:
		return "<="
	case SenseEQ:
		return "="
	case SenseGE:
		return ">="
	}
	return "?"
}

// Constraint is a labeled array of constraint rows sharing one sense.
type Constraint struct {
	model  *Model
	name   string
	coords Coords
	terms  [][]term
	rhs    []float64
	sense  Sense
	labels []int // assigned at registration; nil while unregistered
}

// Name returns the constraint name ("" while unregistered).
func (c *Constraint) Name() string { return c.name }

// Coords returns the coordinate space of the constraint array.
func (c *Constraint) Coords() Coords { return c.coords }

// Sense returns the relational sense.
func (c *Constraint) Sense() Sense { return c.sense }

// RHS returns the right-hand-side constants as a labeled array.
func (c *Constraint) RHS() *DataArray {
	return &DataArray{coords: c.coords, values: append([]float64(nil), c.rhs...)}
}

// Labels returns the per-position integer labels; nil while unregistered.
func (c *Constraint) Labels() []int {
	if c.labels == nil {
		return nil
	}
	return append([]int(nil), c.labels...)
}

// Dual returns the dual values of the constraint array after a solve that
// produced duals. It fails fast when the constraint is unregistered, the
// model is unsolved, or duals are absent.
// In case of failure, function returns an error.
func (c *Constraint) Dual() (*DataArray, error) {
	if c.model == nil {
		return nil, &UnsolvedError{What: "dual of an unregistered constraint"}
	}
	dual, err := c.model.Dual()
	if err != nil {
		return nil, err
	}
	arr, ok := dual[c.name]
	if !ok {
		return nil, errors.Errorf("dual values are not available for constraint %s", c.name)
	}
	return arr, nil
}

// LHSValue evaluates the left-hand side of every row at the solved point.
// Masked-out variable elements contribute nothing; positions whose terms
// reference no solved value yield NaN.
// In case of failure, function returns an error.
func (c *Constraint) LHSValue() (*DataArray, error) {
	if c.model == nil {
		return nil, &UnsolvedError{What: "LHS value of an unregistered constraint"}
	}
	if c.model.primal == nil {
		return nil, &UnsolvedError{What: "LHS value of constraint " + c.name}
	}
	values := make([]float64, len(c.terms))
	for pos, ts := range c.terms {
		if len(ts) == 0 {
			values[pos] = math.NaN()
			continue
		}
		lhs := 0.0
		for _, t := range ts {
			x, ok := c.model.primal[t.label]
			if !ok {
				return nil, &ShapeError{Kind: "variable", Label: t.label, Detail: "no primal value for label referenced by constraint " + c.name}
			}
			lhs += t.coef * x
		}
		values[pos] = lhs
	}
	return &DataArray{coords: c.coords, values: values}, nil
}
