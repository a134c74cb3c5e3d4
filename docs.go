/*
Package linmod ("linear modeling") provides a Go language layer for building
Linear Programming (LP) and Mixed-Integer Linear Programming (MILP) models
from labeled, multi-dimensional variable arrays, and for solving them through
external solvers. It is intended for two sets of users: (i) people who want
to state an optimization model once and run it against whichever solver is
installed, and (ii) researchers who need programmatic access to the canonical
sparse form of a model.

Some of the main functions include:
  - declaring variable arrays over named, labeled coordinates
  - building linear (and quadratic-objective) expressions with elementwise
    arithmetic and broadcasting across coordinates
  - flattening the labeled model into a canonical sparse problem
  - writing and reading models in free-form MPS format, and writing models
    in CPLEX LP format
  - solving models via the Cplex binary (file based), or via the in-process
    APIs of Cplex (gpx), HiGHS, and lp_solve
  - mapping flat solver output back into labeled solution and dual datasets
  - recovering MILP dual values through a fixed-integer re-solve

Building Models

A Model owns its variables, constraints, and objective. Variables are created
through the model so that every element of every variable array receives a
unique integer label:

	m := linmod.NewModel("transport")
	x, err := m.AddVariables(linmod.VarSpec{
		Name:   "x",
		Coords: linmod.NewCoords(linmod.Dim{Name: "plant", Labels: []string{"a", "b"}}),
		Lower:  linmod.Scalar(0),
	})
	...
	_, err = m.AddConstraints(con, "capacity")
	err = m.AddObjective(expr, linmod.Minimize)

Expressions never touch a solver; arithmetic on variables and expressions
only builds term lists. Comparison helpers (LessEq, Equal, GreaterEq) turn an
expression and a right-hand side into an unregistered Constraint, which
AddConstraints then binds to the model.

Solving

Solving is a single blocking call. The solver, the transport ("lp", "mps" or
"direct") and per-solver options are given in a SolveConfig; unrecognized
option keys are passed through to the solver verbatim:

	status, condition, err := m.Solve(linmod.SolveConfig{Solver: "cplex"})
	if err != nil {
		...
	}
	if condition == linmod.ConditionOptimal {
		sol, _ := m.Solution()
		...
	}

Status reports whether the solver ran cleanly ("ok", "warning", "error");
condition reports the termination condition ("optimal", "infeasible",
"unbounded", ...). Infeasible and unbounded are expected outcomes, not
errors. After an optimal solve, Model.Solution and Model.Dual hold one
labeled array per variable and constraint group, reshaped from the solver's
flat output.

For mixed-integer models, dual values are not defined by the MILP itself.
When SolveConfig.CalculateFixedDuals is set, the model is re-solved with
every integer variable fixed to its solved value and the duals of that
continuous re-solve are reported. The primal solution and objective value
always come from the original MILP solve.

Solver Availability

The in-process adapters for Cplex (package gpx), HiGHS (package highs), and
lp_solve (package golp) depend on the corresponding native libraries. They
are guarded by the build tags "cplex", "highs" and "lpsolve" so that the
core package builds everywhere; the file-based Cplex adapter only needs the
cplex binary on PATH at run time. AvailableSolvers reports which registered
solvers are usable in the current environment.
*/
package linmod
