//go:build highs

package linmod

// In-process HiGHS adapter, enabled by building with the "highs" tag. The
// bindings take the full problem as a sparse model in one shot; constraint
// senses become row ranges (L: (-inf, rhs], G: [rhs, +inf), E: [rhs, rhs]).
//
// The bindings have no maximization or quadratic entry points, so
// maximization is solved as the negated minimization (objective and duals
// are negated back) and quadratic objectives are rejected.

import (
	"math"
	"strings"

	"github.com/lanl/highs"
	"github.com/pkg/errors"
)

type highsSolver struct{}

func init() {
	RegisterSolver(highsSolver{})
}

// Name returns the registry name of the adapter.
func (highsSolver) Name() string { return "highs" }

// Available reports whether the adapter can run; the library is linked in
// when this file is compiled at all.
func (highsSolver) Available() bool { return true }

// SolveProblem loads the canonical problem into a HiGHS model and solves it
// in process. Infeasible and unbounded terminations are reported through
// the result condition, not as errors.
// In case of failure, function returns an error.
func (s highsSolver) SolveProblem(p *Problem, cfg SolveConfig) (*SolverResult, error) {
	if cfg.IOAPI != "" && cfg.IOAPI != "direct" {
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.Errorf("unsupported io_api %q; this adapter is in-process only", cfg.IOAPI)}
	}
	if len(p.Q) > 0 {
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.New("quadratic objectives are not supported")}
	}
	if opts := envOptions(cfg); len(opts) > 0 {
		logger.Debug().Int("count", len(opts)).Msg("solver options are not passed through the in-process interface")
	}

	sign := 1.0
	if p.Maximize {
		sign = -1.0
	}

	nVars, nCons := p.NumVars(), p.NumCons()
	lp := new(highs.Model)
	lp.VarTypes = make([]highs.VariableType, nVars)
	lp.ColLower = make([]float64, nVars)
	lp.ColUpper = make([]float64, nVars)
	lp.ColCosts = make([]float64, nVars)
	for i := range p.VarLabels {
		if p.Integer[i] {
			lp.VarTypes[i] = highs.IntegerType
		} else {
			lp.VarTypes[i] = highs.ContinuousType
		}
		lp.ColLower[i] = p.Lower[i]
		lp.ColUpper[i] = p.Upper[i]
	}
	varIdx := p.varIndex()
	for _, oc := range p.Obj {
		lp.ColCosts[varIdx[oc.Col]] += sign * oc.Val
	}

	lp.RowLower = make([]float64, nCons)
	lp.RowUpper = make([]float64, nCons)
	for i := range p.ConLabels {
		switch p.Senses[i] {
		case SenseLE:
			lp.RowLower[i] = math.Inf(-1)
			lp.RowUpper[i] = p.RHS[i]
		case SenseGE:
			lp.RowLower[i] = p.RHS[i]
			lp.RowUpper[i] = math.Inf(1)
		default:
			lp.RowLower[i] = p.RHS[i]
			lp.RowUpper[i] = p.RHS[i]
		}
	}
	conIdx := p.conIndex()
	lp.ConstMatrix = make([]highs.Nonzero, 0, len(p.A))
	for _, nz := range p.A {
		lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: conIdx[nz.Row], Col: varIdx[nz.Col], Val: nz.Val})
	}

	solution, err := lp.Solve()
	if err != nil {
		return nil, wrapInvocation(s.Name(), err, "solve failed")
	}
	if solution.Status != highs.Optimal {
		cond := highsCondition(solution.Status.String())
		return &SolverResult{Status: statusFor(cond), Condition: cond}, nil
	}

	res := &SolverResult{
		Status:    StatusOK,
		Condition: ConditionOptimal,
		Objective: sign*solution.Objective + p.ObjConst,
		Primal:    make(map[int]float64, nVars),
	}
	for i, label := range p.VarLabels {
		res.Primal[label] = solution.ColumnPrimal[i]
	}
	if !p.IsMIP() && len(solution.RowDual) == nCons {
		res.Dual = make(map[int]float64, nCons)
		for i, label := range p.ConLabels {
			res.Dual[label] = sign * solution.RowDual[i]
		}
	}
	return res, nil
}

// highsCondition classifies a non-optimal model status string.
func highsCondition(status string) Condition {
	st := strings.ToLower(status)
	switch {
	case strings.Contains(st, "infeasible") && strings.Contains(st, "unbounded"):
		return ConditionUnknown
	case strings.Contains(st, "infeasible"):
		return ConditionInfeasible
	case strings.Contains(st, "unbounded"):
		return ConditionUnbounded
	case strings.Contains(st, "limit"):
		return ConditionSuboptimal
	}
	return ConditionUnknown
}
