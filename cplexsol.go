package linmod

// Parser for the XML solution files CPLEX writes ("write <name>.sol"). The
// numeric attributes are kept as strings during unmarshaling because CPLEX
// omits the dual and reduced-cost attributes for MIP solutions, and an
// absent attribute must stay distinguishable from 0.

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type cplexSolution struct {
	XMLName xml.Name        `xml:"CPLEXSolution"`
	Header  cplexSolHeader  `xml:"header"`
	Rows    []cplexSolRow   `xml:"linearConstraints>constraint"`
	Cols    []cplexSolCol   `xml:"variables>variable"`
	Quality cplexSolQuality `xml:"quality"`
}

type cplexSolHeader struct {
	ProblemName    string `xml:"problemName,attr"`
	ObjectiveValue string `xml:"objectiveValue,attr"`
	StatusString   string `xml:"solutionStatusString,attr"`
	StatusValue    string `xml:"solutionStatusValue,attr"`
	MethodString   string `xml:"solutionMethodString,attr"`
}

type cplexSolRow struct {
	Name  string `xml:"name,attr"`
	Index string `xml:"index,attr"`
	Slack string `xml:"slack,attr"`
	Dual  string `xml:"dual,attr"`
}

type cplexSolCol struct {
	Name        string `xml:"name,attr"`
	Index       string `xml:"index,attr"`
	Value       string `xml:"value,attr"`
	ReducedCost string `xml:"reducedCost,attr"`
}

type cplexSolQuality struct {
	MaxPrimalInfeas string `xml:"maxPrimalInfeas,attr"`
	MaxIntInfeas    string `xml:"maxIntInfeas,attr"`
}

// parseCplexSolution unmarshals one CPLEX solution file.
// In case of failure, function returns an error.
func parseCplexSolution(r io.Reader) (*cplexSolution, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cplex: failed to read solution file")
	}
	var sol cplexSolution
	if err := xml.Unmarshal(data, &sol); err != nil {
		return nil, errors.Wrap(err, "cplex: failed to parse solution file")
	}
	return &sol, nil
}

// parseCplexSolutionFile unmarshals the named CPLEX solution file.
// In case of failure, function returns an error.
func parseCplexSolutionFile(path string) (*cplexSolution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cplex: failed to open solution file")
	}
	defer f.Close()
	return parseCplexSolution(f)
}

// cplexCondition maps the solver's status wording to a termination
// condition. The string covers both LP ("optimal") and MIP ("integer
// optimal solution", "integer optimal, tolerance") phrasings.
func cplexCondition(statusString, statusValue string) Condition {
	s := strings.ToLower(statusString)
	switch {
	case strings.Contains(s, "infeasible or unbounded"):
		return ConditionUnknown
	case strings.Contains(s, "optimal"):
		return ConditionOptimal
	case strings.Contains(s, "infeasible"):
		return ConditionInfeasible
	case strings.Contains(s, "unbounded"):
		return ConditionUnbounded
	case strings.Contains(s, "feasible") || strings.Contains(s, "limit"):
		return ConditionSuboptimal
	}
	switch statusValue {
	case "1", "101", "102":
		return ConditionOptimal
	case "3", "103":
		return ConditionInfeasible
	case "2", "118":
		return ConditionUnbounded
	}
	return ConditionUnknown
}

// toResult converts the parsed solution file to a flat solver result,
// resolving row and column names back to the problem's labels. Duals are
// reported only when CPLEX wrote a dual attribute, which it does for LP
// solves and omits for MIP solves.
// In case of failure, function returns an error.
func (sol *cplexSolution) toResult(p *Problem) (*SolverResult, error) {
	cond := cplexCondition(sol.Header.StatusString, sol.Header.StatusValue)
	res := &SolverResult{
		Status:    statusFor(cond),
		Condition: cond,
	}
	if sol.Header.ObjectiveValue != "" {
		v, err := strconv.ParseFloat(sol.Header.ObjectiveValue, 64)
		if err != nil {
			return nil, errors.Wrap(err, "cplex: bad objective value in solution file")
		}
		res.Objective = v
	}

	varLabels := make(map[string]int, len(p.VarLabels))
	for i, label := range p.VarLabels {
		varLabels[p.VarName(i)] = label
	}
	conLabels := make(map[string]int, len(p.ConLabels))
	for i, label := range p.ConLabels {
		conLabels[p.ConName(i)] = label
	}

	if len(sol.Cols) > 0 {
		res.Primal = make(map[int]float64, len(sol.Cols))
	}
	for _, col := range sol.Cols {
		label, ok := varLabels[col.Name]
		if !ok {
			return nil, &ShapeError{Kind: "variable", Label: -1, Detail: "solution file names unknown column " + col.Name}
		}
		v, err := strconv.ParseFloat(col.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "cplex: bad value for column %s", col.Name)
		}
		res.Primal[label] = v
	}

	for _, row := range sol.Rows {
		if row.Dual == "" {
			continue
		}
		label, ok := conLabels[row.Name]
		if !ok {
			return nil, &ShapeError{Kind: "constraint", Label: -1, Detail: "solution file names unknown row " + row.Name}
		}
		v, err := strconv.ParseFloat(row.Dual, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "cplex: bad dual for row %s", row.Name)
		}
		if res.Dual == nil {
			res.Dual = make(map[int]float64, len(sol.Rows))
		}
		res.Dual[label] = v
	}

	return res, nil
}
