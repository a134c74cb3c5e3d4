package linmod

// File-based CPLEX adapter. The problem is written to an LP or MPS file,
// an interactive-optimizer command file is generated, and the "cplex"
// binary is run with "-f". Results come back through the XML solution file
// and the captured console output. No native library is needed; the
// in-process adapter built under the "cplex" tag registers itself through
// the cplexDirectSolve hook.

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// cplexDirectSolve is set by the in-process adapter when the package is
// built with the "cplex" tag; nil means io_api "direct" is unavailable.
var cplexDirectSolve func(p *Problem, cfg SolveConfig) (*SolverResult, error)

type cplexSolver struct{}

func init() {
	RegisterSolver(cplexSolver{})
}

// Name returns the registry name of the adapter.
func (cplexSolver) Name() string { return "cplex" }

// cplexBinary returns the executable to run, honoring the LINMOD_CPLEX
// override.
func cplexBinary() string {
	if bin := os.Getenv("LINMOD_CPLEX"); bin != "" {
		return bin
	}
	return "cplex"
}

// Available reports whether the CPLEX interactive optimizer is on PATH.
func (cplexSolver) Available() bool {
	_, err := exec.LookPath(cplexBinary())
	return err == nil
}

// fileStem derives a filesystem-safe stem from the problem name.
func fileStem(name string) string {
	if name == "" {
		return "problem"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

// SolveProblem writes the problem and a command file, runs the optimizer,
// and maps the solution file back to labels. Infeasible and unbounded
// terminations are reported through the result condition, not as errors.
// In case of failure, function returns an error.
func (s cplexSolver) SolveProblem(p *Problem, cfg SolveConfig) (*SolverResult, error) {
	ioapi := cfg.IOAPI
	if ioapi == "" {
		ioapi = "lp"
	}
	if ioapi == "direct" {
		if cplexDirectSolve == nil {
			return nil, &InvocationError{Solver: s.Name(), Cause: errors.New(`io_api "direct" requires building with the cplex tag`)}
		}
		return cplexDirectSolve(p, cfg)
	}
	if ioapi != "lp" && ioapi != "mps" {
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.Errorf("unsupported io_api %q", ioapi)}
	}

	dir, cleanup, err := solveWorkspace(cfg)
	if err != nil {
		return nil, wrapInvocation(s.Name(), err, "workspace setup failed")
	}
	defer cleanup()

	stem := fileStem(p.Name)
	probFile := filepath.Join(dir, stem+"."+ioapi)
	solFile := filepath.Join(dir, stem+".sol")
	cmdFile := filepath.Join(dir, stem+".cmd")
	logFile := filepath.Join(dir, stem+".log")

	// a stale solution file in a shared workdir must not be mistaken for
	// this solve's output
	os.Remove(solFile)

	if ioapi == "lp" {
		err = p.WriteLPFile(probFile)
	} else {
		err = p.WriteMPSFile(probFile)
	}
	if err != nil {
		return nil, wrapInvocation(s.Name(), err, "failed to write problem file")
	}

	var cmds strings.Builder
	fmt.Fprintf(&cmds, "read %s\n", probFile)
	for _, kv := range envOptions(cfg) {
		fmt.Fprintf(&cmds, "set %s %s\n", kv[0], kv[1])
	}
	fmt.Fprintf(&cmds, "optimize\n")
	fmt.Fprintf(&cmds, "write %s\n", solFile)
	fmt.Fprintf(&cmds, "quit\n")
	if err := os.WriteFile(cmdFile, []byte(cmds.String()), 0o644); err != nil {
		return nil, wrapInvocation(s.Name(), err, "failed to write command file")
	}

	logger.Debug().Str("problem", probFile).Str("commands", cmdFile).Msg("running cplex")
	var out bytes.Buffer
	cmd := exec.Command(cplexBinary(), "-f", cmdFile)
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()
	if werr := os.WriteFile(logFile, out.Bytes(), 0o644); werr != nil {
		logger.Warn().Err(werr).Msg("failed to save cplex console log")
	}
	console := out.String()
	if runErr != nil {
		return nil, wrapInvocation(s.Name(), runErr, "cplex execution failed")
	}
	if idx := strings.Index(console, "CPLEX Error"); idx >= 0 {
		line := console[idx:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		return nil, &InvocationError{Solver: s.Name(), Cause: errors.New(strings.TrimSpace(line))}
	}

	if _, err := os.Stat(solFile); err != nil {
		// no solution file is how the optimizer reports infeasible and
		// unbounded runs; classify from the console text
		cond := cplexConsoleCondition(console)
		return &SolverResult{Status: statusFor(cond), Condition: cond}, nil
	}

	sol, err := parseCplexSolutionFile(solFile)
	if err != nil {
		return nil, wrapInvocation(s.Name(), err, "failed to read solution")
	}
	return sol.toResult(p)
}

// cplexConsoleCondition classifies a run that produced no solution file
// from the optimizer's console output.
func cplexConsoleCondition(console string) Condition {
	c := strings.ToLower(console)
	switch {
	case strings.Contains(c, "infeasible or unbounded"):
		return ConditionUnknown
	case strings.Contains(c, "infeasible"):
		return ConditionInfeasible
	case strings.Contains(c, "unbounded"):
		return ConditionUnbounded
	}
	return ConditionUnknown
}
