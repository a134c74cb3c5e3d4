package linmod

// Error taxonomy for the package. Build-time problems (bad names, senses,
// shapes) surface immediately at the call that caused them; solve-time
// outcomes such as infeasibility are reported through Status/Condition and
// are not errors. Only invocation-level failures (missing binary, license
// refusal, rejected problem file) come back as errors from Solve.

import (
	"fmt"

	"github.com/pkg/errors"
)

// BuildError reports an invalid model construction step: duplicate names,
// invalid sense symbols, shape mismatches, or nonlinear term products.
type BuildError struct {
	Op     string // operation that failed, e.g. "AddVariables"
	Detail string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func buildErrorf(op, format string, args ...interface{}) error {
	return &BuildError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// UnsolvedError reports access to a bound or solution accessor on a
// variable or constraint that is not attached to a solved model.
type UnsolvedError struct {
	What string
}

func (e *UnsolvedError) Error() string {
	return fmt.Sprintf("%s is not available before a successful solve", e.What)
}

// InvocationError reports that the external solver could not be run at all:
// binary or library missing, license failure, or the solver rejecting the
// problem file. The solver-native message is preserved in Cause.
type InvocationError struct {
	Solver string
	Cause  error
}

func (e *InvocationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("solver %s failed to run", e.Solver)
	}
	return fmt.Sprintf("solver %s failed to run: %v", e.Solver, e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// ShapeError reports that the flat solver output does not cover every
// registered label exactly once. It is fatal: results are never silently
// truncated or zero-filled.
type ShapeError struct {
	Kind   string // "variable" or "constraint"
	Label  int    // offending label, -1 when the mismatch is aggregate
	Detail string
}

func (e *ShapeError) Error() string {
	if e.Label >= 0 {
		return fmt.Sprintf("%s label %d: %s", e.Kind, e.Label, e.Detail)
	}
	return fmt.Sprintf("%s labels: %s", e.Kind, e.Detail)
}

// FixedResolveError reports that the fixed-integer re-solve used to recover
// MILP duals failed. It is downgraded by the solve orchestration: the
// primal solution of the original solve stays valid and duals are reported
// absent.
type FixedResolveError struct {
	Cause error
}

func (e *FixedResolveError) Error() string {
	return fmt.Sprintf("fixed-integer re-solve failed: %v", e.Cause)
}

func (e *FixedResolveError) Unwrap() error { return e.Cause }

// wrapInvocation attaches solver identity to an invocation-level failure.
func wrapInvocation(solver string, err error, msg string) error {
	return &InvocationError{Solver: solver, Cause: errors.Wrap(err, msg)}
}
