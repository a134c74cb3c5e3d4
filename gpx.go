//go:build cplex

package linmod

// In-process CPLEX adapter over the gpx callable-library bindings, enabled
// by building with the "cplex" tag. It backs io_api "direct" of the cplex
// solver; the file-based path in cplex.go needs no native library and is
// always compiled.
//
// The bindings expose no maximization or quadratic entry points, so
// maximization is solved as the negated minimization (objective and duals
// are negated back) and quadratic objectives are rejected.

import (
	"strings"

	"github.com/go-opt/gpx"
	"github.com/pkg/errors"
)

func init() {
	cplexDirectSolve = gpxSolve
}

// gpxSolve loads the canonical problem into a CPLEX environment, optimizes,
// and reads the solution back through the bindings.
// In case of failure, function returns an error.
func gpxSolve(p *Problem, cfg SolveConfig) (*SolverResult, error) {
	if len(p.Q) > 0 {
		return nil, &InvocationError{Solver: "cplex", Cause: errors.New(`io_api "direct" does not support quadratic objectives; use "lp" or "mps"`)}
	}
	if opts := envOptions(cfg); len(opts) > 0 {
		logger.Debug().Int("count", len(opts)).Msg("solver options are not passed through the in-process interface")
	}

	name := p.Name
	if name == "" {
		name = "problem"
	}
	if err := gpx.CreateProb(name); err != nil {
		return nil, wrapInvocation("cplex", err, "failed to create problem")
	}
	defer gpx.CloseCplex()
	if err := gpx.OutputToScreen(false); err != nil {
		return nil, wrapInvocation("cplex", err, "failed to silence solver output")
	}

	sign := 1.0
	if p.Maximize {
		sign = -1.0
	}

	rows := make([]gpx.InputRow, p.NumCons())
	for i := range p.ConLabels {
		rows[i] = gpx.InputRow{
			Name:  p.ConName(i),
			Sense: string(p.Senses[i]),
			Rhs:   p.RHS[i],
		}
	}
	cols := make([]gpx.InputCol, p.NumVars())
	for i := range p.VarLabels {
		colType := "C"
		if p.Integer[i] {
			colType = "I"
		}
		cols[i] = gpx.InputCol{
			Name:  p.VarName(i),
			Type:  colType,
			BndLo: p.Lower[i],
			BndUp: p.Upper[i],
		}
	}
	varIdx := p.varIndex()
	conIdx := p.conIndex()
	objCoefs := make([]gpx.InputObjCoef, 0, len(p.Obj))
	for _, oc := range p.Obj {
		objCoefs = append(objCoefs, gpx.InputObjCoef{ColIndex: varIdx[oc.Col], Value: sign * oc.Val})
	}
	elems := make([]gpx.InputElem, 0, len(p.A))
	for _, nz := range p.A {
		elems = append(elems, gpx.InputElem{RowIndex: conIdx[nz.Row], ColIndex: varIdx[nz.Col], Value: nz.Val})
	}

	if err := gpx.NewRows(rows); err != nil {
		return nil, wrapInvocation("cplex", err, "failed to load rows")
	}
	if err := gpx.NewCols(objCoefs, cols); err != nil {
		return nil, wrapInvocation("cplex", err, "failed to load columns")
	}
	if err := gpx.ChgCoefList(elems); err != nil {
		return nil, wrapInvocation("cplex", err, "failed to load coefficients")
	}

	var optErr error
	if p.IsMIP() {
		optErr = gpx.MipOpt()
	} else {
		optErr = gpx.LpOpt()
	}
	if optErr != nil {
		if cond, ok := gpxCondition(optErr); ok {
			return &SolverResult{Status: statusFor(cond), Condition: cond}, nil
		}
		return nil, wrapInvocation("cplex", optErr, "optimization failed")
	}

	var objVal float64
	var solRows []gpx.SolnRow
	var solCols []gpx.SolnCol
	var solErr error
	if p.IsMIP() {
		solErr = gpx.GetMipSolution(&objVal, &solRows, &solCols)
	} else {
		solErr = gpx.GetSolution(&objVal, &solRows, &solCols)
	}
	if solErr != nil {
		if cond, ok := gpxCondition(solErr); ok {
			return &SolverResult{Status: statusFor(cond), Condition: cond}, nil
		}
		return nil, wrapInvocation("cplex", solErr, "failed to read solution")
	}

	res := &SolverResult{
		Status:    StatusOK,
		Condition: ConditionOptimal,
		Objective: sign*objVal + p.ObjConst,
		Primal:    make(map[int]float64, len(solCols)),
	}
	colLabels := make(map[string]int, p.NumVars())
	for i, label := range p.VarLabels {
		colLabels[p.VarName(i)] = label
	}
	for _, sc := range solCols {
		label, ok := colLabels[sc.Name]
		if !ok {
			return nil, &ShapeError{Kind: "variable", Label: -1, Detail: "solver returned unknown column " + sc.Name}
		}
		res.Primal[label] = sc.Value
	}
	if !p.IsMIP() {
		rowLabels := make(map[string]int, p.NumCons())
		for i, label := range p.ConLabels {
			rowLabels[p.ConName(i)] = label
		}
		res.Dual = make(map[int]float64, len(solRows))
		for _, sr := range solRows {
			label, ok := rowLabels[sr.Name]
			if !ok {
				return nil, &ShapeError{Kind: "constraint", Label: -1, Detail: "solver returned unknown row " + sr.Name}
			}
			res.Dual[label] = sign * sr.Pi
		}
	}
	return res, nil
}

// gpxCondition classifies a binding error as a termination condition; the
// second return is false when the error is not a recognizable termination.
func gpxCondition(err error) (Condition, bool) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "infeasible or unbounded"):
		return ConditionUnknown, true
	case strings.Contains(msg, "infeasible"):
		return ConditionInfeasible, true
	case strings.Contains(msg, "unbounded"):
		return ConditionUnbounded, true
	}
	return ConditionUnknown, false
}
