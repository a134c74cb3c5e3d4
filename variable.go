package linmod

// Variables are labeled arrays of scalar decision variables. They are
// created through Model.AddVariables, which assigns every active element a
// unique integer label; the label namespace is owned by the model and
// labels are never reused. A zero-value Variable is detached and its
// accessors fail fast.

import (
	"math"
)

// VarSpec describes a variable array to be added to a model.
type VarSpec struct {
	// Name must be unique within the model.
	Name string

	// Coords gives the coordinate space; leave zero for a scalar variable.
	Coords Coords

	// Lower and Upper bound arrays broadcast against Coords. Nil means
	// unbounded (-inf / +inf); binary variables force [0, 1].
	Lower *DataArray
	Upper *DataArray

	// Integer restricts all elements to integer values.
	Integer bool

	// Binary restricts all elements to {0, 1}. Implies Integer.
	Binary bool

	// Mask excludes elements (false = excluded). Excluded elements get no
	// integer label and never reach the canonical problem. Length must be
	// Coords.Size() when non-nil.
	Mask []bool
}

// Variable is a labeled array of decision variables bound to a model.
type Variable struct {
	model   *Model
	name    string
	coords  Coords
	labels  []int // -1 where masked out
	lower   []float64
	upper   []float64
	integer bool
	binary  bool
	mask    []bool // nil when all elements are active
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Coords returns the coordinate space of the variable array.
func (v *Variable) Coords() Coords { return v.coords }

// IsInteger reports whether the variable is integer (or binary).
func (v *Variable) IsInteger() bool { return v.integer }

// IsBinary reports whether the variable is binary.
func (v *Variable) IsBinary() bool { return v.binary }

// Labels returns the per-element integer labels; masked-out elements
// carry -1.
func (v *Variable) Labels() []int {
	return append([]int(nil), v.labels...)
}

// Expr returns the expression holding this variable with coefficient one
// at every active position.
func (v *Variable) Expr() *LinExpr {
	e := newZeroExpr(v.coords)
	for pos, label := range v.labels {
		if label >= 0 {
			e.terms[pos] = []term{{coef: 1, label: label}}
		}
	}
	return e
}

// Mul returns the expression f * v.
func (v *Variable) Mul(f float64) *LinExpr {
	return v.Expr().Scale(f)
}

// Sum returns the scalar expression summing all active elements.
func (v *Variable) Sum() *LinExpr {
	return v.Expr().Sum()
}

// MulVar returns the elementwise product of two variables as a quadratic
// expression, usable only in objectives.
// In case of failure, function returns an error.
func (v *Variable) MulVar(o *Variable) (*LinExpr, error) {
	return v.Expr().MulExpr(o.Expr())
}

// LessEq builds the unregistered constraint v <= rhs.
// In case of failure, function returns an error.
func (v *Variable) LessEq(rhs *DataArray) (*Constraint, error) {
	return v.Expr().LessEq(rhs)
}

// Equal builds the unregistered constraint v == rhs.
// In case of failure, function returns an error.
func (v *Variable) Equal(rhs *DataArray) (*Constraint, error) {
	return v.Expr().Equal(rhs)
}

// GreaterEq builds the unregistered constraint v >= rhs.
// In case of failure, function returns an error.
func (v *Variable) GreaterEq(rhs *DataArray) (*Constraint, error) {
	return v.Expr().GreaterEq(rhs)
}

// boundArray reshapes a flat per-element bound slice into a labeled array,
// filling masked positions with NaN.
func (v *Variable) boundArray(flat []float64) *DataArray {
	values := make([]float64, len(flat))
	copy(values, flat)
	for pos, label := range v.labels {
		if label < 0 {
			values[pos] = math.NaN()
		}
	}
	return &DataArray{coords: v.coords, values: values}
}

// LowerBound returns the per-element lower bounds. It fails fast when the
// variable is not attached to a model.
// In case of failure, function returns an error.
func (v *Variable) LowerBound() (*DataArray, error) {
	if v.model == nil {
		return nil, &UnsolvedError{What: "lower bound of a detached variable"}
	}
	return v.boundArray(v.lower), nil
}

// UpperBound returns the per-element upper bounds. It fails fast when the
// variable is not attached to a model.
// In case of failure, function returns an error.
func (v *Variable) UpperBound() (*DataArray, error) {
	if v.model == nil {
		return nil, &UnsolvedError{What: "upper bound of a detached variable"}
	}
	return v.boundArray(v.upper), nil
}

// Solution returns the solved values of the variable array, with NaN at
// masked positions. It fails fast when the variable is detached or the
// model has not been solved.
// In case of failure, function returns an error.
func (v *Variable) Solution() (*DataArray, error) {
	if v.model == nil {
		return nil, &UnsolvedError{What: "solution of a detached variable"}
	}
	sol, err := v.model.Solution()
	if err != nil {
		return nil, err
	}
	arr, ok := sol[v.name]
	if !ok {
		return nil, &UnsolvedError{What: "solution of variable " + v.name}
	}
	return arr, nil
}
