package linmod

// CPLEX LP-format writer. The LP format is the human-readable counterpart
// of MPS and is the default transport of the file-based CPLEX adapter.
// Quadratic objectives are written in the bracketed "[ ... ] / 2" form, so
// every coefficient inside the brackets is twice its canonical value.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// lpBound renders one bound value, using the inf tokens the LP format
// understands.
func lpBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	}
	return fnum(v)
}

// lpTerm appends one "± coef name" term, folding the coefficient sign into
// the connective.
func lpTerm(bw *bufio.Writer, first bool, coef float64, name string) {
	sign := "+"
	if coef < 0 || (coef == 0 && math.Signbit(coef)) {
		sign = "-"
		coef = -coef
	}
	if first && sign == "+" {
		fmt.Fprintf(bw, "%s %s", fnum(coef), name)
		return
	}
	if first {
		fmt.Fprintf(bw, "- %s %s", fnum(coef), name)
		return
	}
	fmt.Fprintf(bw, " %s %s %s", sign, fnum(coef), name)
}

// WriteLP serializes the canonical problem in CPLEX LP format.
// In case of failure, function returns an error.
func (p *Problem) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)

	name := p.Name
	if name == "" {
		name = "problem"
	}
	fmt.Fprintf(bw, "\\ Problem: %s\n", name)
	if p.Maximize {
		fmt.Fprintf(bw, "Maximize\n")
	} else {
		fmt.Fprintf(bw, "Minimize\n")
	}

	varIdx := p.varIndex()
	conIdx := p.conIndex()

	// objective
	fmt.Fprintf(bw, " %s: ", mpsObjName)
	first := true
	for _, oc := range p.Obj {
		ci, ok := varIdx[oc.Col]
		if !ok {
			return errors.Errorf("lp: objective references unknown variable label %d", oc.Col)
		}
		lpTerm(bw, first, oc.Val, p.VarName(ci))
		first = false
	}
	if len(p.Q) > 0 {
		if !first {
			fmt.Fprintf(bw, " + ")
		}
		fmt.Fprintf(bw, "[ ")
		qfirst := true
		for _, q := range p.Q {
			ci, okI := varIdx[q.I]
			cj, okJ := varIdx[q.J]
			if !okI || !okJ {
				return errors.Errorf("lp: quadratic objective references unknown variable label")
			}
			if q.I == q.J {
				lpTerm(bw, qfirst, 2*q.Val, p.VarName(ci)+" ^2")
			} else {
				lpTerm(bw, qfirst, 2*q.Val, p.VarName(ci)+" * "+p.VarName(cj))
			}
			qfirst = false
		}
		fmt.Fprintf(bw, " ] / 2")
		first = false
	}
	if p.ObjConst != 0 {
		if first {
			fmt.Fprintf(bw, "%s", fnum(p.ObjConst))
		} else if p.ObjConst > 0 {
			fmt.Fprintf(bw, " + %s", fnum(p.ObjConst))
		} else {
			fmt.Fprintf(bw, " - %s", fnum(-p.ObjConst))
		}
		first = false
	}
	if first {
		fmt.Fprintf(bw, "0")
	}
	fmt.Fprintf(bw, "\n")

	// constraints; empty rows are anchored on the first column so every
	// registered row appears in the file
	fmt.Fprintf(bw, "Subject To\n")
	entriesByRow := make(map[int][]Nonzero, len(p.ConLabels))
	for _, nz := range p.A {
		if _, ok := varIdx[nz.Col]; !ok {
			return errors.Errorf("lp: coefficient references unknown variable label %d", nz.Col)
		}
		entriesByRow[nz.Row] = append(entriesByRow[nz.Row], nz)
	}
	for i, label := range p.ConLabels {
		fmt.Fprintf(bw, " %s: ", p.ConName(i))
		rowFirst := true
		for _, nz := range entriesByRow[label] {
			lpTerm(bw, rowFirst, nz.Val, p.VarName(varIdx[nz.Col]))
			rowFirst = false
		}
		if rowFirst {
			if p.NumVars() == 0 {
				return errors.Errorf("lp: constraint %s has no terms and no column to anchor on", p.ConName(i))
			}
			lpTerm(bw, true, 0, p.VarName(0))
		}
		fmt.Fprintf(bw, " %s %s\n", p.Senses[conIdx[label]], fnum(p.RHS[i]))
	}

	// bounds are always explicit so the LP defaults never apply
	fmt.Fprintf(bw, "Bounds\n")
	for i := range p.VarLabels {
		col := p.VarName(i)
		lo, up := p.Lower[i], p.Upper[i]
		switch {
		case lo == up:
			fmt.Fprintf(bw, " %s = %s\n", col, fnum(lo))
		case math.IsInf(lo, -1) && math.IsInf(up, 1):
			fmt.Fprintf(bw, " %s free\n", col)
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", lpBound(lo), col, lpBound(up))
		}
	}

	if p.IsMIP() {
		fmt.Fprintf(bw, "Generals\n")
		for i := range p.VarLabels {
			if p.Integer[i] {
				fmt.Fprintf(bw, " %s\n", p.VarName(i))
			}
		}
	}

	fmt.Fprintf(bw, "End\n")
	return errors.Wrap(bw.Flush(), "lp: write failed")
}

// WriteLPFile serializes the problem to the named file.
// In case of failure, function returns an error.
func (p *Problem) WriteLPFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "lp: failed to create file")
	}
	defer f.Close()
	return p.WriteLP(f)
}
