package linmod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSolver is an in-test adapter driven by a closure.
type stubSolver struct {
	name  string
	solve func(p *Problem, cfg SolveConfig) (*SolverResult, error)
}

func (s *stubSolver) Name() string    { return s.name }
func (s *stubSolver) Available() bool { return true }
func (s *stubSolver) SolveProblem(p *Problem, cfg SolveConfig) (*SolverResult, error) {
	return s.solve(p, cfg)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusOK, statusFor(ConditionOptimal))
	assert.Equal(t, StatusWarning, statusFor(ConditionInfeasible))
	assert.Equal(t, StatusWarning, statusFor(ConditionUnbounded))
	assert.Equal(t, StatusWarning, statusFor(ConditionSuboptimal))
	assert.Equal(t, StatusWarning, statusFor(ConditionUnknown))
}

func TestEnvOptionsOrdering(t *testing.T) {
	cfg := SolveConfig{
		Env:     &Environment{Params: map[string]string{"threads": "4", "emphasis mip": "1"}},
		Options: map[string]string{"timelimit": "60", "mip tolerances mipgap": "0.01"},
	}
	opts := envOptions(cfg)
	require.Len(t, opts, 4)
	// environment params first, each block sorted by key
	assert.Equal(t, [2]string{"emphasis mip", "1"}, opts[0])
	assert.Equal(t, [2]string{"threads", "4"}, opts[1])
	assert.Equal(t, [2]string{"mip tolerances mipgap", "0.01"}, opts[2])
	assert.Equal(t, [2]string{"timelimit", "60"}, opts[3])

	assert.Empty(t, envOptions(SolveConfig{}))
}

func TestSolveWorkspaceTemp(t *testing.T) {
	dir, cleanup, err := solveWorkspace(SolveConfig{})
	require.NoError(t, err)
	_, err = os.Stat(dir)
	require.NoError(t, err)
	cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSolveWorkspaceKeepFiles(t *testing.T) {
	dir, cleanup, err := solveWorkspace(SolveConfig{KeepFiles: true})
	require.NoError(t, err)
	cleanup()
	_, err = os.Stat(dir)
	assert.NoError(t, err, "KeepFiles must preserve the directory")
	os.RemoveAll(dir)
}

func TestSolveWorkspaceEnvDir(t *testing.T) {
	base := t.TempDir()
	want := filepath.Join(base, "session")
	cfg := SolveConfig{Env: &Environment{WorkDir: want}}

	dir, cleanup, err := solveWorkspace(cfg)
	require.NoError(t, err)
	assert.Equal(t, want, dir)
	cleanup()
	_, err = os.Stat(want)
	assert.NoError(t, err, "caller-owned directory must never be removed")
}

func TestRegistry(t *testing.T) {
	s := &stubSolver{name: "stub-registry"}
	RegisterSolver(s)
	got, ok := lookupSolver("stub-registry")
	assert.True(t, ok)
	assert.Same(t, s, got)
	assert.Contains(t, RegisteredSolvers(), "stub-registry")
	assert.Contains(t, AvailableSolvers(), "stub-registry")
}

func TestSolveMILPThroughStub(t *testing.T) {
	m, x0, x1, x2 := milpModel(t)

	RegisterSolver(&stubSolver{
		name: "stub-milp",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			assert.True(t, p.IsMIP())
			return &SolverResult{
				Status:    StatusOK,
				Condition: ConditionOptimal,
				Objective: -12,
				Primal:    map[int]float64{0: 0, 1: 5.5, 2: 1},
			}, nil
		},
	})

	status, condition, err := m.Solve(SolveConfig{Solver: "stub-milp"})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, ConditionOptimal, condition)
	assert.Equal(t, StateSolvedOK, m.State())

	obj, err := m.ObjectiveValue()
	require.NoError(t, err)
	assert.Equal(t, -12.0, obj)

	for v, want := range map[*Variable]float64{x0: 0, x1: 5.5, x2: 1} {
		sol, err := v.Solution()
		require.NoError(t, err)
		assert.Equal(t, []float64{want}, sol.Values())
	}

	// MILP without fixed duals: dual dataset is empty, per-constraint
	// access reports absence
	dual, err := m.Dual()
	require.NoError(t, err)
	assert.Empty(t, dual)
	_, err = m.Constraint("cap").Dual()
	assert.Error(t, err)

	lhs, err := m.Constraint("cap").LHSValue()
	require.NoError(t, err)
	assert.Equal(t, []float64{6.5}, lhs.Values())
}

func TestSolveLPDuals(t *testing.T) {
	m := NewModel("lp")
	x, err := m.AddVariables(VarSpec{Name: "x", Coords: NewCoords(RangeDim("i", 2)), Lower: Scalar(0)})
	require.NoError(t, err)
	con, err := x.Sum().LessEq(Scalar(4))
	require.NoError(t, err)
	capCon, err := m.AddConstraints(con, "cap")
	require.NoError(t, err)
	require.NoError(t, m.AddObjective(x.Sum().Scale(-1), Minimize))

	RegisterSolver(&stubSolver{
		name: "stub-lp",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			return &SolverResult{
				Status:    StatusOK,
				Condition: ConditionOptimal,
				Objective: -4,
				Primal:    map[int]float64{0: 4, 1: 0},
				Dual:      map[int]float64{0: -1},
			}, nil
		},
	})

	_, _, err = m.Solve(SolveConfig{Solver: "stub-lp"})
	require.NoError(t, err)

	d, err := capCon.Dual()
	require.NoError(t, err)
	assert.Equal(t, []float64{-1}, d.Values())
}

func TestSolveFixedDualsProtocol(t *testing.T) {
	m, _, _, _ := milpModel(t)

	calls := 0
	RegisterSolver(&stubSolver{
		name: "stub-fixed",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			calls++
			if calls == 1 {
				assert.True(t, p.IsMIP())
				assert.True(t, cfg.CalculateFixedDuals)
				return &SolverResult{
					Status:    StatusOK,
					Condition: ConditionOptimal,
					Objective: -12,
					Primal:    map[int]float64{0: 0, 1: 5.5, 2: 0.9999999},
				}, nil
			}
			// second call: continuous relaxation with integers fixed
			assert.False(t, p.IsMIP())
			assert.False(t, cfg.CalculateFixedDuals)
			assert.Equal(t, "milp-fixed", p.Name)
			assert.Equal(t, 1.0, p.Lower[2])
			assert.Equal(t, 1.0, p.Upper[2])
			return &SolverResult{
				Status:    StatusOK,
				Condition: ConditionOptimal,
				Objective: -11.9, // must NOT replace the primary objective
				Primal:    map[int]float64{0: 0.1, 1: 5.4, 2: 1},
				Dual:      map[int]float64{0: 0, 1: -1},
			}, nil
		},
	})

	status, condition, err := m.Solve(SolveConfig{Solver: "stub-fixed", CalculateFixedDuals: true})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, ConditionOptimal, condition)

	// primal solution and objective come from the primary solve
	obj, err := m.ObjectiveValue()
	require.NoError(t, err)
	assert.Equal(t, -12.0, obj)
	sol, err := m.Solution()
	require.NoError(t, err)
	assert.Equal(t, []float64{5.5}, sol["x1"].Values())
	assert.Equal(t, []float64{0.9999999}, sol["x2"].Values())

	// duals come from the fixed re-solve
	d, err := m.Constraint("balance").Dual()
	require.NoError(t, err)
	assert.Equal(t, []float64{-1}, d.Values())
}

func TestSolveFixedDualsFailureDowngrades(t *testing.T) {
	m, _, _, _ := milpModel(t)

	calls := 0
	RegisterSolver(&stubSolver{
		name: "stub-fixed-fail",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			calls++
			if calls == 1 {
				return &SolverResult{
					Status:    StatusOK,
					Condition: ConditionOptimal,
					Objective: -12,
					Primal:    map[int]float64{0: 0, 1: 5.5, 2: 1},
				}, nil
			}
			return nil, errors.New("license lost mid-session")
		},
	})

	status, condition, err := m.Solve(SolveConfig{Solver: "stub-fixed-fail", CalculateFixedDuals: true})
	require.NoError(t, err, "fixed-duals failure must not fail the solve")
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, ConditionOptimal, condition)

	dual, err := m.Dual()
	require.NoError(t, err)
	assert.Empty(t, dual)

	// primal solution survives
	sol, err := m.Solution()
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, sol["x2"].Values())
}

func TestSolveInfeasible(t *testing.T) {
	m, _, _, _ := milpModel(t)
	RegisterSolver(&stubSolver{
		name: "stub-infeasible",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			return &SolverResult{Status: StatusWarning, Condition: ConditionInfeasible}, nil
		},
	})

	status, condition, err := m.Solve(SolveConfig{Solver: "stub-infeasible"})
	require.NoError(t, err, "infeasibility is a condition, not an error")
	assert.Equal(t, StatusWarning, status)
	assert.Equal(t, ConditionInfeasible, condition)
	assert.Equal(t, StateSolvedWarning, m.State())

	var ue *UnsolvedError
	_, err = m.Solution()
	assert.ErrorAs(t, err, &ue)
}

func TestSolveInvocationFailure(t *testing.T) {
	m, _, _, _ := milpModel(t)
	RegisterSolver(&stubSolver{
		name: "stub-broken",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			return nil, &InvocationError{Solver: "stub-broken", Cause: errors.New("binary not found")}
		},
	})

	status, condition, err := m.Solve(SolveConfig{Solver: "stub-broken"})
	var ie *InvocationError
	assert.ErrorAs(t, err, &ie)
	assert.Equal(t, StatusError, status)
	assert.Equal(t, ConditionNotSolved, condition)
	assert.Equal(t, StateSolverError, m.State())
}

func TestSolveDiscardsPreviousResults(t *testing.T) {
	m, _, _, _ := milpModel(t)
	RegisterSolver(&stubSolver{
		name: "stub-first",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			return &SolverResult{
				Status:    StatusOK,
				Condition: ConditionOptimal,
				Objective: -12,
				Primal:    map[int]float64{0: 0, 1: 5.5, 2: 1},
			}, nil
		},
	})
	RegisterSolver(&stubSolver{
		name: "stub-second",
		solve: func(p *Problem, cfg SolveConfig) (*SolverResult, error) {
			return &SolverResult{Status: StatusWarning, Condition: ConditionInfeasible}, nil
		},
	})

	_, _, err := m.Solve(SolveConfig{Solver: "stub-first"})
	require.NoError(t, err)
	_, err = m.Solution()
	require.NoError(t, err)

	// second solve fails to find a solution; the first one must be gone
	_, condition, err := m.Solve(SolveConfig{Solver: "stub-second"})
	require.NoError(t, err)
	assert.Equal(t, ConditionInfeasible, condition)
	var ue *UnsolvedError
	_, err = m.Solution()
	assert.ErrorAs(t, err, &ue)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "unsolved", StateUnsolved.String())
	assert.Equal(t, "sent_to_solver", StateSentToSolver.String())
	assert.Equal(t, "fixed_resolve_pending", StateFixedResolvePending.String())
	assert.Equal(t, "fixed_resolve_done", StateFixedResolveDone.String())
	assert.Equal(t, "solved_ok", StateSolvedOK.String())
	assert.Equal(t, "solved_warning", StateSolvedWarning.String())
	assert.Equal(t, "solver_error", StateSolverError.String())
}
