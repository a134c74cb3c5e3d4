package linmod

// Model aggregates variables, constraints, and the objective, and owns the
// integer-label namespaces for both. Labels increase monotonically and are
// never reused within a model instance. Models are not safe for concurrent
// mutation; concurrent solves need separate Model instances.

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ObjSense is the optimization direction of the objective.
type ObjSense int

const (
	Minimize ObjSense = iota
	Maximize
)

// String renders the objective sense.
func (s ObjSense) String() string {
	if s == Maximize {
		return "max"
	}
	return "min"
}

// Model is a named collection of variables, constraints, and one objective.
type Model struct {
	name string

	vars       []*Variable
	varsByName map[string]*Variable
	cons       []*Constraint
	consByName map[string]*Constraint

	objective *LinExpr
	objSense  ObjSense

	// label namespaces; monotone, never reused
	varCounter int
	conCounter int

	// solve results
	state     SolveState
	status    Status
	condition Condition
	objVal    float64
	primal    map[int]float64
	dualFlat  map[int]float64
	solution  map[string]*DataArray
	dual      map[string]*DataArray
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		name:       name,
		varsByName: make(map[string]*Variable),
		consByName: make(map[string]*Constraint),
		state:      StateUnsolved,
		condition:  ConditionNotSolved,
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Variables returns the registered variables in registration order.
func (m *Model) Variables() []*Variable {
	return append([]*Variable(nil), m.vars...)
}

// Constraints returns the registered constraints in registration order.
func (m *Model) Constraints() []*Constraint {
	return append([]*Constraint(nil), m.cons...)
}

// Variable looks up a registered variable by name, or nil.
func (m *Model) Variable(name string) *Variable { return m.varsByName[name] }

// Constraint looks up a registered constraint by name, or nil.
func (m *Model) Constraint(name string) *Constraint { return m.consByName[name] }

// State returns the solve state of the model.
func (m *Model) State() SolveState { return m.state }

// AddVariables validates the spec, allocates integer labels contiguous with
// the existing variables, and returns the new variable bound to the model.
// Binary variables are stored as integer variables with bounds [0, 1].
// In case of failure, function returns an error.
func (m *Model) AddVariables(spec VarSpec) (*Variable, error) {
	if spec.Name == "" {
		return nil, buildErrorf("AddVariables", "variable name must not be empty")
	}
	if _, exists := m.varsByName[spec.Name]; exists {
		return nil, buildErrorf("AddVariables", "duplicate variable name %q", spec.Name)
	}
	if err := spec.Coords.validate(); err != nil {
		return nil, buildErrorf("AddVariables", "%v", err)
	}
	n := spec.Coords.Size()
	if spec.Mask != nil && len(spec.Mask) != n {
		return nil, buildErrorf("AddVariables", "mask length %d does not match coordinate space of size %d", len(spec.Mask), n)
	}

	lower, upper := spec.Lower, spec.Upper
	integer := spec.Integer
	if spec.Binary {
		integer = true
		lower = Scalar(0)
		upper = Scalar(1)
	}

	v := &Variable{
		model:   m,
		name:    spec.Name,
		coords:  spec.Coords,
		labels:  make([]int, n),
		integer: integer,
		binary:  spec.Binary,
	}
	var err error
	if v.lower, err = boundValues(spec.Coords, lower, math.Inf(-1)); err != nil {
		return nil, buildErrorf("AddVariables", "lower bound: %v", err)
	}
	if v.upper, err = boundValues(spec.Coords, upper, math.Inf(1)); err != nil {
		return nil, buildErrorf("AddVariables", "upper bound: %v", err)
	}
	if spec.Mask != nil {
		v.mask = append([]bool(nil), spec.Mask...)
	}

	for pos := 0; pos < n; pos++ {
		if v.mask != nil && !v.mask[pos] {
			v.labels[pos] = -1
			continue
		}
		v.labels[pos] = m.varCounter
		m.varCounter++
	}

	m.vars = append(m.vars, v)
	m.varsByName[v.name] = v
	return v, nil
}

// boundValues expands an optional bound array onto the coordinate space,
// filling uncovered positions with def.
// In case of failure, function returns an error.
func boundValues(c Coords, bound *DataArray, def float64) ([]float64, error) {
	if bound == nil {
		values := make([]float64, c.Size())
		for i := range values {
			values[i] = def
		}
		return values, nil
	}
	arr, err := bound.broadcastTo(c, def)
	if err != nil {
		return nil, err
	}
	return arr.values, nil
}

// AddConstraints registers a pre-built constraint under the given name,
// allocating one integer label per position.
// In case of failure, function returns an error.
func (m *Model) AddConstraints(c *Constraint, name string) (*Constraint, error) {
	if c == nil {
		return nil, buildErrorf("AddConstraints", "nil constraint")
	}
	if c.model != nil {
		return nil, buildErrorf("AddConstraints", "constraint already registered as %q", c.name)
	}
	if name == "" {
		return nil, buildErrorf("AddConstraints", "constraint name must not be empty")
	}
	if _, exists := m.consByName[name]; exists {
		return nil, buildErrorf("AddConstraints", "duplicate constraint name %q", name)
	}
	if !c.sense.valid() {
		return nil, buildErrorf("AddConstraints", "invalid sense %q", string(c.sense))
	}
	if err := m.checkLabels(c.terms); err != nil {
		return nil, buildErrorf("AddConstraints", "%v", err)
	}

	c.model = m
	c.name = name
	c.labels = make([]int, len(c.rhs))
	for pos := range c.labels {
		c.labels[pos] = m.conCounter
		m.conCounter++
	}
	m.cons = append(m.cons, c)
	m.consByName[name] = c
	return c, nil
}

// AddConstraintsExpr builds and registers a constraint from separate
// left-hand side, sense, and right-hand side.
// In case of failure, function returns an error.
func (m *Model) AddConstraintsExpr(lhs *LinExpr, sense Sense, rhs *DataArray, name string) (*Constraint, error) {
	if !sense.valid() {
		return nil, buildErrorf("AddConstraints", "invalid sense %q", string(sense))
	}
	c, err := lhs.compare(sense, rhs)
	if err != nil {
		return nil, err
	}
	return m.AddConstraints(c, name)
}

// checkLabels verifies that every term references a label allocated by
// this model.
// In case of failure, function returns an error.
func (m *Model) checkLabels(terms [][]term) error {
	for _, ts := range terms {
		for _, t := range ts {
			if t.label < 0 || t.label >= m.varCounter {
				return errors.Errorf("term references unknown variable label %d", t.label)
			}
		}
	}
	return nil
}

// AddObjective stores the objective expression and sense. The expression
// must be scalar (use Sum to reduce a coordinate-indexed expression).
// Replacing an existing objective is allowed and discards the prior one.
// In case of failure, function returns an error.
func (m *Model) AddObjective(e *LinExpr, sense ObjSense) error {
	if e == nil {
		return buildErrorf("AddObjective", "nil expression")
	}
	if e.coords.Size() != 1 {
		return buildErrorf("AddObjective", "objective must be scalar; reduce with Sum first")
	}
	if err := m.checkLabels(e.terms); err != nil {
		return buildErrorf("AddObjective", "%v", err)
	}
	if m.objective != nil {
		logger.Debug().Str("model", m.name).Msg("replacing existing objective")
	}
	m.objective = e.clone()
	m.objSense = sense
	return nil
}

// Objective returns the stored objective expression and sense; the
// expression is nil when no objective has been set.
func (m *Model) Objective() (*LinExpr, ObjSense) {
	return m.objective, m.objSense
}

// ObjectiveValue returns the objective value of the last solve.
// In case of failure, function returns an error.
func (m *Model) ObjectiveValue() (float64, error) {
	if m.solution == nil {
		return 0, &UnsolvedError{What: "objective value"}
	}
	return m.objVal, nil
}

// Solution returns the solution dataset: one labeled array per variable,
// keyed by variable name, with NaN at masked positions.
// In case of failure, function returns an error.
func (m *Model) Solution() (map[string]*DataArray, error) {
	if m.solution == nil {
		return nil, &UnsolvedError{What: "solution dataset"}
	}
	return m.solution, nil
}

// Dual returns the dual dataset: one labeled array per constraint, keyed
// by constraint name. The dataset is empty (not an error) when the solve
// produced no duals, e.g. a MILP without the fixed-duals flag.
// In case of failure, function returns an error.
func (m *Model) Dual() (map[string]*DataArray, error) {
	if m.solution == nil {
		return nil, &UnsolvedError{What: "dual dataset"}
	}
	if m.dual == nil {
		return map[string]*DataArray{}, nil
	}
	return m.dual, nil
}

// Solve flattens the model, hands it to the named solver, and maps the flat
// result back onto the model's coordinate spaces. It returns the solver
// status ("ok", "warning", "error") and termination condition ("optimal",
// "infeasible", ...). Infeasible or unbounded outcomes are reported through
// the condition, not as errors; only invocation-level failures return an
// error. Every call rebuilds the canonical problem from current model
// state.
func (m *Model) Solve(cfg SolveConfig) (Status, Condition, error) {
	solver, ok := lookupSolver(cfg.Solver)
	if !ok {
		err := &InvocationError{Solver: cfg.Solver, Cause: errors.Errorf("unknown solver; registered: %v", RegisteredSolvers())}
		return StatusError, ConditionNotSolved, err
	}

	prob, err := m.Flatten()
	if err != nil {
		return StatusError, ConditionNotSolved, err
	}

	// No memoization: discard any previous results before solving.
	m.solution, m.dual = nil, nil
	m.primal, m.dualFlat = nil, nil
	m.objVal = 0

	m.state = StateSentToSolver
	logger.Info().
		Str("model", m.name).
		Str("solver", cfg.Solver).
		Int("nvars", len(prob.VarLabels)).
		Int("ncons", len(prob.ConLabels)).
		Msg("solving")

	res, err := solver.SolveProblem(prob, cfg)
	if err != nil {
		m.state = StateSolverError
		m.status, m.condition = StatusError, ConditionNotSolved
		return m.status, m.condition, err
	}

	if cfg.CalculateFixedDuals && prob.IsMIP() && res.Condition == ConditionOptimal {
		m.state = StateFixedResolvePending
		if ferr := resolveFixedDuals(solver, prob, cfg, res); ferr != nil {
			logger.Warn().Err(ferr).Str("model", m.name).Msg("duals reported absent")
			res.Dual = nil
		}
		m.state = StateFixedResolveDone
	}

	if err := m.mapResult(prob, res); err != nil {
		m.state = StateSolverError
		m.status, m.condition = StatusError, ConditionNotSolved
		return m.status, m.condition, err
	}

	m.status, m.condition = res.Status, res.Condition
	switch m.status {
	case StatusOK:
		m.state = StateSolvedOK
	case StatusWarning:
		m.state = StateSolvedWarning
	default:
		m.state = StateSolverError
	}
	logger.Info().
		Str("model", m.name).
		Str("status", string(m.status)).
		Str("condition", string(m.condition)).
		Float64("objective", m.objVal).
		Msg("solve finished")
	return m.status, m.condition, nil
}

// String summarizes the model.
func (m *Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model %q: %d variable group(s) (%d elements), %d constraint group(s) (%d rows)",
		m.name, len(m.vars), m.varCounter, len(m.cons), m.conCounter)
	if m.objective != nil {
		fmt.Fprintf(&sb, ", objective (%s)", m.objSense)
	}
	fmt.Fprintf(&sb, ", state %s", m.state)
	return sb.String()
}
