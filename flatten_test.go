package linmod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// milpModel builds the reference mixed-integer model used across the
// serializer and solver tests:
//
//	min  -3 x0 - 2 x1 - x2
//	s.t. x0 + x1 + x2     <= 7   (cap)
//	     4 x0 + 2 x1 + x2  = 12  (balance)
//	     x0, x1 >= 0, x2 binary
func milpModel(t *testing.T) (*Model, *Variable, *Variable, *Variable) {
	t.Helper()
	m := NewModel("milp")
	x0, err := m.AddVariables(VarSpec{Name: "x0", Lower: Scalar(0)})
	require.NoError(t, err)
	x1, err := m.AddVariables(VarSpec{Name: "x1", Lower: Scalar(0)})
	require.NoError(t, err)
	x2, err := m.AddVariables(VarSpec{Name: "x2", Binary: true})
	require.NoError(t, err)

	lhs, err := AddExprs(x0.Expr(), x1.Expr(), x2.Expr())
	require.NoError(t, err)
	cap1, err := lhs.LessEq(Scalar(7))
	require.NoError(t, err)
	_, err = m.AddConstraints(cap1, "cap")
	require.NoError(t, err)

	lhs2, err := AddExprs(x0.Mul(4), x1.Mul(2), x2.Expr())
	require.NoError(t, err)
	bal, err := lhs2.Equal(Scalar(12))
	require.NoError(t, err)
	_, err = m.AddConstraints(bal, "balance")
	require.NoError(t, err)

	obj, err := AddExprs(x0.Mul(-3), x1.Mul(-2), x2.Mul(-1))
	require.NoError(t, err)
	require.NoError(t, m.AddObjective(obj, Minimize))
	return m, x0, x1, x2
}

func TestFlattenMILP(t *testing.T) {
	m, _, _, _ := milpModel(t)
	p, err := m.Flatten()
	require.NoError(t, err)

	assert.Equal(t, 3, p.NumVars())
	assert.Equal(t, 2, p.NumCons())
	assert.True(t, p.IsMIP())
	assert.False(t, p.Maximize)

	assert.Equal(t, []int{0, 1, 2}, p.VarLabels)
	assert.Equal(t, []bool{false, false, true}, p.Integer)
	assert.Equal(t, []float64{0, 0, 0}, p.Lower)
	assert.True(t, math.IsInf(p.Upper[0], 1))
	assert.Equal(t, 1.0, p.Upper[2])

	assert.Equal(t, []int{0, 1}, p.ConLabels)
	assert.Equal(t, []Sense{SenseLE, SenseEQ}, p.Senses)
	assert.Equal(t, []float64{7, 12}, p.RHS)

	require.Len(t, p.A, 6)
	assert.Equal(t, Nonzero{Row: 0, Col: 0, Val: 1}, p.A[0])
	assert.Equal(t, Nonzero{Row: 1, Col: 0, Val: 4}, p.A[3])
	assert.Equal(t, Nonzero{Row: 1, Col: 1, Val: 2}, p.A[4])

	require.Len(t, p.Obj, 3)
	assert.Equal(t, ObjCoef{Col: 0, Val: -3}, p.Obj[0])
	assert.Equal(t, 0.0, p.ObjConst)
	assert.Empty(t, p.Q)
}

func TestFlattenCoalescesDuplicates(t *testing.T) {
	m := NewModel("coalesce")
	x, err := m.AddVariables(VarSpec{Name: "x"})
	require.NoError(t, err)

	lhs, err := AddExprs(x.Expr(), x.Mul(2))
	require.NoError(t, err)
	con, err := lhs.LessEq(Scalar(5))
	require.NoError(t, err)
	_, err = m.AddConstraints(con, "dup")
	require.NoError(t, err)

	p, err := m.Flatten()
	require.NoError(t, err)
	require.Len(t, p.A, 1)
	assert.Equal(t, 3.0, p.A[0].Val)
}

func TestFlattenZeroHandling(t *testing.T) {
	m := NewModel("zeros")
	x, err := m.AddVariables(VarSpec{Name: "x"})
	require.NoError(t, err)
	y, err := m.AddVariables(VarSpec{Name: "y"})
	require.NoError(t, err)

	// structural zero: dropped
	lhs, err := AddExprs(x.Expr(), y.Mul(0))
	require.NoError(t, err)
	con, err := lhs.LessEq(Scalar(1))
	require.NoError(t, err)
	_, err = m.AddConstraints(con, "structural")
	require.NoError(t, err)

	// cancellation to zero: kept
	lhs2, err := AddExprs(y.Mul(2), y.Mul(-2), x.Expr())
	require.NoError(t, err)
	con2, err := lhs2.LessEq(Scalar(1))
	require.NoError(t, err)
	_, err = m.AddConstraints(con2, "cancel")
	require.NoError(t, err)

	p, err := m.Flatten()
	require.NoError(t, err)
	require.Len(t, p.A, 3)
	assert.Equal(t, Nonzero{Row: 0, Col: 0, Val: 1}, p.A[0])
	assert.Equal(t, Nonzero{Row: 1, Col: 0, Val: 1}, p.A[1])
	assert.Equal(t, Nonzero{Row: 1, Col: 1, Val: 0}, p.A[2])
}

func TestFlattenSkipsMasked(t *testing.T) {
	m := NewModel("masked")
	x, err := m.AddVariables(VarSpec{
		Name:   "x",
		Coords: NewCoords(RangeDim("i", 3)),
		Mask:   []bool{true, false, true},
	})
	require.NoError(t, err)
	con, err := x.Sum().LessEq(Scalar(4))
	require.NoError(t, err)
	_, err = m.AddConstraints(con, "cap")
	require.NoError(t, err)

	p, err := m.Flatten()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, p.VarLabels)
	require.Len(t, p.A, 2)
}

func TestFlattenQuadraticObjective(t *testing.T) {
	m := NewModel("quadobj")
	x, err := m.AddVariables(VarSpec{Name: "x"})
	require.NoError(t, err)
	y, err := m.AddVariables(VarSpec{Name: "y"})
	require.NoError(t, err)

	xx, err := x.MulVar(x)
	require.NoError(t, err)
	xy, err := x.MulVar(y)
	require.NoError(t, err)
	obj, err := AddExprs(xx, xy.Scale(4), y.Mul(2))
	require.NoError(t, err)
	require.NoError(t, m.AddObjective(obj, Minimize))

	p, err := m.Flatten()
	require.NoError(t, err)
	require.Len(t, p.Q, 2)
	assert.Equal(t, QuadCoef{I: 0, J: 0, Val: 1}, p.Q[0])
	assert.Equal(t, QuadCoef{I: 0, J: 1, Val: 4}, p.Q[1])
}

func TestFixIntegers(t *testing.T) {
	m, _, _, _ := milpModel(t)
	p, err := m.Flatten()
	require.NoError(t, err)

	fixed, err := fixIntegers(p, map[int]float64{0: 0, 1: 5.5, 2: 0.9999997})
	require.NoError(t, err)
	assert.Equal(t, "milp-fixed", fixed.Name)
	assert.False(t, fixed.IsMIP())
	// x2 fixed to its rounded value
	assert.Equal(t, 1.0, fixed.Lower[2])
	assert.Equal(t, 1.0, fixed.Upper[2])
	// continuous columns untouched
	assert.Equal(t, 0.0, fixed.Lower[0])
	assert.True(t, math.IsInf(fixed.Upper[0], 1))
	// original untouched
	assert.True(t, p.IsMIP())
	assert.Equal(t, 1.0, p.Upper[2])

	_, err = fixIntegers(p, map[int]float64{0: 0})
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}

func TestProblemNames(t *testing.T) {
	p := &Problem{
		VarLabels: []int{0, 1},
		VarNames:  []string{"gen", ""},
		ConLabels: []int{0},
	}
	assert.Equal(t, "gen", p.VarName(0))
	assert.Equal(t, "x1", p.VarName(1))
	assert.Equal(t, "c0", p.ConName(0))
}
