package linmod

// Uniform solver contract. Every adapter takes the canonical problem and a
// SolveConfig and returns a flat SolverResult; whether it goes through a
// problem file or an in-process API is the adapter's business. Adapters
// register themselves here; cgo-backed ones do so from files guarded by
// build tags so the core package builds without the native libraries.

import (
	"os"

	"github.com/pkg/errors"
)

// Status reports whether the solver ran cleanly.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Condition is the termination condition reported by the solver.
type Condition string

const (
	ConditionOptimal    Condition = "optimal"
	ConditionInfeasible Condition = "infeasible"
	ConditionUnbounded  Condition = "unbounded"
	ConditionSuboptimal Condition = "suboptimal"
	ConditionNotSolved  Condition = "not_solved"
	ConditionUnknown    Condition = "unknown"
)

// statusFor derives the status from a termination condition: optimal runs
// are ok; everything the solver terminated on its own terms (infeasible,
// unbounded, suboptimal) is a warning, not an error.
func statusFor(c Condition) Status {
	switch c {
	case ConditionOptimal:
		return StatusOK
	case ConditionInfeasible, ConditionUnbounded, ConditionSuboptimal:
		return StatusWarning
	default:
		return StatusWarning
	}
}

// SolveState tracks one solve invocation through its phases.
type SolveState int

const (
	StateUnsolved SolveState = iota
	StateSentToSolver
	StateFixedResolvePending
	StateFixedResolveDone
	StateSolvedOK
	StateSolvedWarning
	StateSolverError
)

// String renders the solve state.
func (s SolveState) String() string {
	switch s {
	case StateUnsolved:
		return "unsolved"
	case StateSentToSolver:
		return "sent_to_solver"
	case StateFixedResolvePending:
		return "fixed_resolve_pending"
	case StateFixedResolveDone:
		return "fixed_resolve_done"
	case StateSolvedOK:
		return "solved_ok"
	case StateSolvedWarning:
		return "solved_warning"
	case StateSolverError:
		return "solver_error"
	}
	return "invalid"
}

// SolverResult is the flat outcome of one solver run.
type SolverResult struct {
	Status    Status
	Condition Condition
	Objective float64

	// Primal maps variable label to solved value; nil when the solver
	// reported no solution.
	Primal map[int]float64

	// Dual maps constraint label to dual value; nil when duals are absent
	// (e.g. a MILP solve without the fixed-duals protocol).
	Dual map[int]float64
}

// Environment carries shared solver session state across sequential solves
// by the same caller: a working directory for problem/solution files and
// solver parameters applied before per-call options. Sharing an
// environment across concurrent solves is solver-dependent and outside
// this package's contract.
type Environment struct {
	// WorkDir is where problem, solution, and log files are placed. When
	// set, the files are kept (the directory belongs to the caller); when
	// empty, each solve uses a private temporary directory that is removed
	// on every exit path.
	WorkDir string

	// Params are solver parameters applied before SolveConfig.Options.
	Params map[string]string
}

// SolveConfig selects the solver and carries per-call settings.
type SolveConfig struct {
	// Solver is the registered adapter name, e.g. "cplex" or "highs".
	Solver string

	// IOAPI selects the transport: "lp" or "mps" for file-based solves,
	// "direct" for the in-process API. Empty lets the adapter choose its
	// default.
	IOAPI string

	// CalculateFixedDuals requests the fixed-integer re-solve that
	// recovers dual values for mixed-integer problems.
	CalculateFixedDuals bool

	// Options are solver-specific settings. Unrecognized keys are passed
	// through to the solver verbatim, not validated here.
	Options map[string]string

	// Env optionally shares session state across solves.
	Env *Environment

	// KeepFiles preserves problem/solution/log files of file-based solves
	// for inspection.
	KeepFiles bool
}

// Solver is the uniform per-solver contract.
type Solver interface {
	// Name returns the registry name of the adapter.
	Name() string

	// Available reports whether the solver can actually run in this
	// environment (binary on PATH, library linked, ...).
	Available() bool

	// SolveProblem solves the canonical problem, blocking until the
	// external solver returns.
	// In case of failure, function returns an error.
	SolveProblem(p *Problem, cfg SolveConfig) (*SolverResult, error)
}

var solverRegistry = map[string]Solver{}

// RegisterSolver adds an adapter to the registry; later registrations
// under the same name win.
func RegisterSolver(s Solver) {
	solverRegistry[s.Name()] = s
}

func lookupSolver(name string) (Solver, bool) {
	s, ok := solverRegistry[name]
	return s, ok
}

// RegisteredSolvers lists all registered adapter names.
func RegisteredSolvers() []string {
	return sortedKeys(solverRegistry)
}

// AvailableSolvers lists the registered adapters that report themselves
// usable in the current environment.
func AvailableSolvers() []string {
	var names []string
	for _, name := range sortedKeys(solverRegistry) {
		if solverRegistry[name].Available() {
			names = append(names, name)
		}
	}
	return names
}

// resolveFixedDuals runs the second phase of the fixed-duals protocol:
// re-solve the continuous relaxation with integers fixed to their solved
// values and graft that solve's duals onto the primary result. The primary
// solve's primal solution and objective value are never touched.
// In case of failure, function returns an error (the caller downgrades it
// to "duals absent").
func resolveFixedDuals(s Solver, p *Problem, cfg SolveConfig, res *SolverResult) error {
	fixed, err := fixIntegers(p, res.Primal)
	if err != nil {
		return &FixedResolveError{Cause: err}
	}
	fixedCfg := cfg
	fixedCfg.CalculateFixedDuals = false
	logger.Debug().Str("solver", s.Name()).Msg("re-solving fixed continuous relaxation for duals")
	fres, err := s.SolveProblem(fixed, fixedCfg)
	if err != nil {
		return &FixedResolveError{Cause: err}
	}
	if fres.Condition != ConditionOptimal {
		return &FixedResolveError{Cause: errors.Errorf("fixed relaxation terminated %s", fres.Condition)}
	}
	if fres.Dual == nil {
		return &FixedResolveError{Cause: errors.New("fixed relaxation returned no duals")}
	}
	res.Dual = fres.Dual
	return nil
}

// solveWorkspace resolves the directory for a file-based solve and a
// cleanup function. A caller-supplied environment directory is reused and
// never removed; otherwise a private temporary directory is created and
// removed on all exit paths unless KeepFiles is set.
// In case of failure, function returns an error.
func solveWorkspace(cfg SolveConfig) (string, func(), error) {
	if cfg.Env != nil && cfg.Env.WorkDir != "" {
		if err := os.MkdirAll(cfg.Env.WorkDir, 0o755); err != nil {
			return "", nil, errors.Wrap(err, "failed to prepare solver work directory")
		}
		return cfg.Env.WorkDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "linmod-")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create solver work directory")
	}
	cleanup := func() {
		if cfg.KeepFiles {
			logger.Info().Str("dir", dir).Msg("keeping solver files")
			return
		}
		os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// envOptions merges environment parameters and per-call options in a
// deterministic order, environment first so call options win.
func envOptions(cfg SolveConfig) [][2]string {
	var out [][2]string
	if cfg.Env != nil {
		for _, k := range sortedKeys(cfg.Env.Params) {
			out = append(out, [2]string{k, cfg.Env.Params[k]})
		}
	}
	for _, k := range sortedKeys(cfg.Options) {
		out = append(out, [2]string{k, cfg.Options[k]})
	}
	return out
}
