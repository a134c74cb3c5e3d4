//go:build highs

package linmod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighsSolveLP(t *testing.T) {
	m := NewModel("highs-lp")
	x, err := m.AddVariables(VarSpec{Name: "x", Lower: Scalar(0), Upper: Scalar(4)})
	require.NoError(t, err)
	y, err := m.AddVariables(VarSpec{Name: "y", Lower: Scalar(0)})
	require.NoError(t, err)

	lhs, err := AddExprs(x.Expr(), y.Expr())
	require.NoError(t, err)
	con, err := lhs.LessEq(Scalar(6))
	require.NoError(t, err)
	_, err = m.AddConstraints(con, "cap")
	require.NoError(t, err)

	obj, err := AddExprs(x.Mul(-2), y.Mul(-1))
	require.NoError(t, err)
	require.NoError(t, m.AddObjective(obj, Minimize))

	status, condition, err := m.Solve(SolveConfig{Solver: "highs"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, ConditionOptimal, condition)

	sol, err := x.Solution()
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sol.Values()[0], 1e-6)
	objVal, err := m.ObjectiveValue()
	require.NoError(t, err)
	assert.InDelta(t, -10.0, objVal, 1e-6)
}

func TestHighsSolveInfeasible(t *testing.T) {
	m := NewModel("highs-infeasible")
	x, err := m.AddVariables(VarSpec{Name: "x", Lower: Scalar(0), Upper: Scalar(1)})
	require.NoError(t, err)
	con, err := x.GreaterEq(Scalar(2))
	require.NoError(t, err)
	_, err = m.AddConstraints(con, "impossible")
	require.NoError(t, err)
	require.NoError(t, m.AddObjective(x.Sum(), Minimize))

	status, condition, err := m.Solve(SolveConfig{Solver: "highs"})
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, status)
	assert.Equal(t, ConditionInfeasible, condition)
}
