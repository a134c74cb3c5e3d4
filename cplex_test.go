package linmod

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lpSolXML = `<?xml version = "1.0" encoding="UTF-8" standalone="yes"?>
<CPLEXSolution version="1.2">
 <header problemName="lp" objectiveValue="-4" solutionStatusString="optimal" solutionStatusValue="1" solutionMethodString="dual"/>
 <linearConstraints>
  <constraint name="c0" index="0" slack="0" dual="-1"/>
 </linearConstraints>
 <variables>
  <variable name="x0" index="0" value="4" reducedCost="0"/>
  <variable name="x1" index="1" value="0" reducedCost="0.5"/>
 </variables>
</CPLEXSolution>
`

const mipSolXML = `<?xml version = "1.0" encoding="UTF-8" standalone="yes"?>
<CPLEXSolution version="1.2">
 <header problemName="milp" objectiveValue="-12" solutionStatusString="integer optimal solution" solutionStatusValue="101"/>
 <linearConstraints>
  <constraint name="c0" index="0" slack="0.5"/>
  <constraint name="c1" index="1" slack="0"/>
 </linearConstraints>
 <variables>
  <variable name="x0" index="0" value="0"/>
  <variable name="x1" index="1" value="5.5"/>
  <variable name="x2" index="2" value="1"/>
 </variables>
</CPLEXSolution>
`

func TestParseCplexSolutionLP(t *testing.T) {
	sol, err := parseCplexSolution(strings.NewReader(lpSolXML))
	require.NoError(t, err)
	assert.Equal(t, "optimal", sol.Header.StatusString)

	p := &Problem{
		VarLabels: []int{0, 1},
		ConLabels: []int{0},
	}
	res, err := sol.toResult(p)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, ConditionOptimal, res.Condition)
	assert.Equal(t, -4.0, res.Objective)
	assert.Equal(t, map[int]float64{0: 4, 1: 0}, res.Primal)
	assert.Equal(t, map[int]float64{0: -1}, res.Dual)
}

func TestParseCplexSolutionMIPNoDuals(t *testing.T) {
	sol, err := parseCplexSolution(strings.NewReader(mipSolXML))
	require.NoError(t, err)

	p := &Problem{
		VarLabels: []int{0, 1, 2},
		ConLabels: []int{0, 1},
	}
	res, err := sol.toResult(p)
	require.NoError(t, err)
	assert.Equal(t, ConditionOptimal, res.Condition)
	assert.Equal(t, map[int]float64{0: 0, 1: 5.5, 2: 1}, res.Primal)
	assert.Nil(t, res.Dual, "MIP solution files carry no duals")
}

func TestParseCplexSolutionUnknownColumn(t *testing.T) {
	sol, err := parseCplexSolution(strings.NewReader(lpSolXML))
	require.NoError(t, err)

	p := &Problem{
		VarLabels: []int{0, 1},
		VarNames:  []string{"a", "b"},
		ConLabels: []int{0},
	}
	_, err = sol.toResult(p)
	var se *ShapeError
	assert.ErrorAs(t, err, &se)
}

func TestCplexConditionMapping(t *testing.T) {
	assert.Equal(t, ConditionOptimal, cplexCondition("optimal", "1"))
	assert.Equal(t, ConditionOptimal, cplexCondition("integer optimal solution", "101"))
	assert.Equal(t, ConditionOptimal, cplexCondition("integer optimal, tolerance", "102"))
	assert.Equal(t, ConditionInfeasible, cplexCondition("infeasible", "3"))
	assert.Equal(t, ConditionUnbounded, cplexCondition("unbounded", "2"))
	assert.Equal(t, ConditionUnknown, cplexCondition("infeasible or unbounded", "4"))
	assert.Equal(t, ConditionSuboptimal, cplexCondition("time limit exceeded, integer feasible", "107"))
	assert.Equal(t, ConditionOptimal, cplexCondition("", "1"))
	assert.Equal(t, ConditionUnknown, cplexCondition("", ""))
}

func TestCplexConsoleCondition(t *testing.T) {
	assert.Equal(t, ConditionInfeasible, cplexConsoleCondition("MIP - Integer infeasible."))
	assert.Equal(t, ConditionUnbounded, cplexConsoleCondition("Primal unbounded."))
	assert.Equal(t, ConditionUnknown, cplexConsoleCondition("Presolve - Infeasible or unbounded."))
	assert.Equal(t, ConditionUnknown, cplexConsoleCondition(""))
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "problem", fileStem(""))
	assert.Equal(t, "my-model_1", fileStem("my-model_1"))
	assert.Equal(t, "a-b-c", fileStem("a b/c"))
}

// writeFakeCplex installs a shell script in place of the cplex binary so
// the whole file-based flow can run without a solver installed.
func writeFakeCplex(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-cplex")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("LINMOD_CPLEX", path)
}

func TestCplexSolverEndToEndFake(t *testing.T) {
	m, _, _, x2 := milpModel(t)

	work := t.TempDir()
	solSrc := filepath.Join(work, "canned.sol")
	require.NoError(t, os.WriteFile(solSrc, []byte(mipSolXML), 0o644))
	writeFakeCplex(t, "cp "+solSrc+" "+filepath.Join(work, "milp.sol")+"\n")

	status, condition, err := m.Solve(SolveConfig{
		Solver: "cplex",
		Env:    &Environment{WorkDir: work},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, ConditionOptimal, condition)

	sol, err := x2.Solution()
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, sol.Values())

	// problem and command files were written into the session directory
	_, err = os.Stat(filepath.Join(work, "milp.lp"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(work, "milp.cmd"))
	assert.NoError(t, err)
}

func TestCplexSolverInfeasibleConsole(t *testing.T) {
	m, _, _, _ := milpModel(t)
	writeFakeCplex(t, "echo 'MIP - Integer infeasible.'\n")

	status, condition, err := m.Solve(SolveConfig{Solver: "cplex"})
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, status)
	assert.Equal(t, ConditionInfeasible, condition)
}

func TestCplexSolverErrorOutput(t *testing.T) {
	m, _, _, _ := milpModel(t)
	writeFakeCplex(t, "echo 'CPLEX Error  1016: Promotional version.'\n")

	_, _, err := m.Solve(SolveConfig{Solver: "cplex"})
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "1016")
}

func TestCplexSolverCommandFile(t *testing.T) {
	m, _, _, _ := milpModel(t)
	work := t.TempDir()
	writeFakeCplex(t, "echo 'MIP - Integer infeasible.'\n")

	_, _, err := m.Solve(SolveConfig{
		Solver:  "cplex",
		IOAPI:   "mps",
		Options: map[string]string{"timelimit": "60"},
		Env:     &Environment{WorkDir: work, Params: map[string]string{"threads": "4"}},
	})
	require.NoError(t, err)

	cmds, err := os.ReadFile(filepath.Join(work, "milp.cmd"))
	require.NoError(t, err)
	text := string(cmds)
	assert.Contains(t, text, "read "+filepath.Join(work, "milp.mps"))
	assert.Contains(t, text, "set threads 4")
	assert.Contains(t, text, "set timelimit 60")
	assert.Contains(t, text, "optimize")
	assert.Contains(t, text, "write "+filepath.Join(work, "milp.sol"))
	idxSet := strings.Index(text, "set threads")
	idxOpt := strings.Index(text, "optimize")
	assert.Less(t, idxSet, idxOpt, "parameters must be set before optimizing")
}

func TestCplexDirectUnavailableWithoutTag(t *testing.T) {
	if cplexDirectSolve != nil {
		t.Skip("built with the cplex tag")
	}
	m, _, _, _ := milpModel(t)
	_, _, err := m.Solve(SolveConfig{Solver: "cplex", IOAPI: "direct"})
	var ie *InvocationError
	assert.ErrorAs(t, err, &ie)
}
