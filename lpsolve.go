//go:build lpsolve

package linmod

// In-process lp_solve adapter over the golp bindings, enabled by building
// with the "lpsolve" tag. golp exposes no column-bound setters beyond
// SetUnbounded, so any column whose bounds differ from the lp_solve default
// of [0, +inf) is made free and its bounds become single-entry rows. The
// bindings return no dual values, so results never carry duals and the
// fixed-duals protocol reports them absent.

import (
	"math"

	"github.com/draffensperger/golp"
	"github.com/pkg/errors"
)

type lpsolveSolver struct{}

func init() {
	RegisterSolver(lpsolveSolver{})
}

// Name returns the registry name of the adapter.
func (lpsolveSolver) Name() string { return "lpsolve" }

// Available reports whether the adapter can run; the library is linked in
// when this file is compiled at all.
func (lpsolveSolver) Available() bool { return true }

// SolveProblem loads the canonical problem into an lp_solve instance and
// solves it in process. Infeasible and unbounded terminations are reported
// through the result condition, not as errors.
// In case of failure, function returns an error.
func (s lpsolveSolver) SolveProblem(p *Problem, cfg SolveConfig) (*SolverResult, error) {
	if cfg.IOAPI != "" && cfg.IOAPI != "direct" {
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.Errorf("unsupported io_api %q; this adapter is in-process only", cfg.IOAPI)}
	}
	if len(p.Q) > 0 {
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.New("quadratic objectives are not supported")}
	}
	if opts := envOptions(cfg); len(opts) > 0 {
		logger.Debug().Int("count", len(opts)).Msg("solver options are not passed through the in-process interface")
	}

	nVars := p.NumVars()
	lp := golp.NewLP(0, nVars)
	varIdx := p.varIndex()
	conIdx := p.conIndex()

	for i := range p.VarLabels {
		lp.SetColName(i, p.VarName(i))
		if p.Integer[i] {
			lp.SetInt(i, true)
		}
	}

	costs := make([]float64, nVars)
	for _, oc := range p.Obj {
		costs[varIdx[oc.Col]] += oc.Val
	}
	lp.SetObjFn(costs)
	if p.Maximize {
		lp.SetMaximize()
	}

	rows := make([][]golp.Entry, p.NumCons())
	for _, nz := range p.A {
		ri := conIdx[nz.Row]
		rows[ri] = append(rows[ri], golp.Entry{Col: varIdx[nz.Col], Val: nz.Val})
	}
	for i := range p.ConLabels {
		var ct golp.ConstraintType
		switch p.Senses[i] {
		case SenseLE:
			ct = golp.LE
		case SenseGE:
			ct = golp.GE
		default:
			ct = golp.EQ
		}
		if err := lp.AddConstraintSparse(rows[i], ct, p.RHS[i]); err != nil {
			return nil, wrapInvocation(s.Name(), err, "failed to add constraint "+p.ConName(i))
		}
	}

	// non-default bounds as single-entry rows
	for i := range p.VarLabels {
		lo, up := p.Lower[i], p.Upper[i]
		if lo == 0 && math.IsInf(up, 1) {
			continue
		}
		lp.SetUnbounded(i)
		entry := []golp.Entry{{Col: i, Val: 1}}
		if lo == up {
			if err := lp.AddConstraintSparse(entry, golp.EQ, lo); err != nil {
				return nil, wrapInvocation(s.Name(), err, "failed to fix column "+p.VarName(i))
			}
			continue
		}
		if !math.IsInf(lo, -1) {
			if err := lp.AddConstraintSparse(entry, golp.GE, lo); err != nil {
				return nil, wrapInvocation(s.Name(), err, "failed to bound column "+p.VarName(i))
			}
		}
		if !math.IsInf(up, 1) {
			if err := lp.AddConstraintSparse(entry, golp.LE, up); err != nil {
				return nil, wrapInvocation(s.Name(), err, "failed to bound column "+p.VarName(i))
			}
		}
	}

	ret := lp.Solve()
	switch ret {
	case golp.OPTIMAL:
	case golp.SUBOPTIMAL:
		// a feasible but not proven-optimal point still carries values
		vals := lp.Variables()
		res := &SolverResult{
			Status:    StatusWarning,
			Condition: ConditionSuboptimal,
			Objective: lp.Objective() + p.ObjConst,
			Primal:    make(map[int]float64, nVars),
		}
		for i, label := range p.VarLabels {
			res.Primal[label] = vals[i]
		}
		return res, nil
	case golp.INFEASIBLE:
		return &SolverResult{Status: StatusWarning, Condition: ConditionInfeasible}, nil
	case golp.UNBOUNDED:
		return &SolverResult{Status: StatusWarning, Condition: ConditionUnbounded}, nil
	default:
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.Errorf("solve terminated with code %d", int(ret))}
	}

	vals := lp.Variables()
	res := &SolverResult{
		Status:    StatusOK,
		Condition: ConditionOptimal,
		Objective: lp.Objective() + p.ObjConst,
		Primal:    make(map[int]float64, nVars),
	}
	for i, label := range p.VarLabels {
		res.Primal[label] = vals[i]
	}
	return res, nil
}
