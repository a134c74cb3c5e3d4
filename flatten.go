package linmod

// Flattening turns the labeled model into the canonical sparse problem the
// serializers and solver adapters consume: flat label vectors, bounds,
// integrality flags, sense and right-hand-side vectors, and coefficient
// triples. The canonical problem is built fresh per solve and discarded
// after results are mapped back.
//
// Ordering is first-registered-first-flattened: the same label always maps
// to the same index in every flat array it appears in. Within a row,
// coalesced entries are emitted in ascending label order. Exact-zero
// coefficients are dropped only when structurally zero (a zero coefficient
// as constructed); coefficients that cancel to zero during coalescing are
// kept, and no numeric tolerance is applied here.

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Nonzero is one coefficient of the constraint matrix, addressed by
// constraint and variable label.
type Nonzero struct {
	Row int // constraint label
	Col int // variable label
	Val float64
}

// ObjCoef is one linear objective coefficient, addressed by variable label.
type ObjCoef struct {
	Col int
	Val float64
}

// QuadCoef is one quadratic objective coefficient: the literal coefficient
// of x_I * x_J in the objective, with I <= J. Serializers and adapters that
// need a doubled or halved convention convert from this form.
type QuadCoef struct {
	I, J int
	Val  float64
}

// Problem is the canonical flat representation of a model.
type Problem struct {
	Name string

	// columns
	VarLabels []int
	VarNames  []string // optional; empty entries default to x<label>
	Lower     []float64
	Upper     []float64
	Integer   []bool

	// rows
	ConLabels []int
	ConNames  []string // optional; empty entries default to c<label>
	Senses    []Sense
	RHS       []float64

	// coefficients
	A        []Nonzero
	Obj      []ObjCoef
	ObjConst float64
	Q        []QuadCoef

	Maximize bool
}

// NumVars returns the number of flattened variable columns.
func (p *Problem) NumVars() int { return len(p.VarLabels) }

// NumCons returns the number of flattened constraint rows.
func (p *Problem) NumCons() int { return len(p.ConLabels) }

// IsMIP reports whether any column is integer-restricted.
func (p *Problem) IsMIP() bool {
	for _, isInt := range p.Integer {
		if isInt {
			return true
		}
	}
	return false
}

// VarName returns the column name for position i.
func (p *Problem) VarName(i int) string {
	if i < len(p.VarNames) && p.VarNames[i] != "" {
		return p.VarNames[i]
	}
	return varName(p.VarLabels[i])
}

// ConName returns the row name for position i.
func (p *Problem) ConName(i int) string {
	if i < len(p.ConNames) && p.ConNames[i] != "" {
		return p.ConNames[i]
	}
	return conName(p.ConLabels[i])
}

func varName(label int) string { return "x" + itoa(label) }
func conName(label int) string { return "c" + itoa(label) }

// itoa avoids pulling strconv into every call site.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// varIndex maps variable label to column position.
func (p *Problem) varIndex() map[int]int {
	idx := make(map[int]int, len(p.VarLabels))
	for i, label := range p.VarLabels {
		idx[label] = i
	}
	return idx
}

// conIndex maps constraint label to row position.
func (p *Problem) conIndex() map[int]int {
	idx := make(map[int]int, len(p.ConLabels))
	for i, label := range p.ConLabels {
		idx[label] = i
	}
	return idx
}

// clone deep-copies the problem.
func (p *Problem) clone() *Problem {
	out := *p
	out.VarLabels = append([]int(nil), p.VarLabels...)
	out.VarNames = append([]string(nil), p.VarNames...)
	out.Lower = append([]float64(nil), p.Lower...)
	out.Upper = append([]float64(nil), p.Upper...)
	out.Integer = append([]bool(nil), p.Integer...)
	out.ConLabels = append([]int(nil), p.ConLabels...)
	out.ConNames = append([]string(nil), p.ConNames...)
	out.Senses = append([]Sense(nil), p.Senses...)
	out.RHS = append([]float64(nil), p.RHS...)
	out.A = append([]Nonzero(nil), p.A...)
	out.Obj = append([]ObjCoef(nil), p.Obj...)
	out.Q = append([]QuadCoef(nil), p.Q...)
	return &out
}

// sortedKeys returns the keys of a map in ascending order; flat emission
// must be deterministic.
func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// coalesceTerms sums duplicate labels in a term list. Terms that are zero
// as constructed are structural zeros and dropped before summation; sums
// that cancel to zero are kept.
func coalesceTerms(ts []term) map[int]float64 {
	sums := make(map[int]float64, len(ts))
	for _, t := range ts {
		if t.coef == 0 {
			continue
		}
		sums[t.label] += t.coef
	}
	return sums
}

// Flatten converts the model into its canonical flat problem.
// In case of failure, function returns an error.
func (m *Model) Flatten() (*Problem, error) {
	p := &Problem{Name: m.name, Maximize: m.objSense == Maximize}

	for _, v := range m.vars {
		for pos, label := range v.labels {
			if label < 0 {
				continue
			}
			p.VarLabels = append(p.VarLabels, label)
			p.Lower = append(p.Lower, v.lower[pos])
			p.Upper = append(p.Upper, v.upper[pos])
			p.Integer = append(p.Integer, v.integer)
		}
	}
	known := p.varIndex()

	for _, c := range m.cons {
		for pos, label := range c.labels {
			p.ConLabels = append(p.ConLabels, label)
			p.Senses = append(p.Senses, c.sense)
			p.RHS = append(p.RHS, c.rhs[pos])
			sums := coalesceTerms(c.terms[pos])
			for _, col := range sortedKeys(sums) {
				if _, ok := known[col]; !ok {
					return nil, errors.Errorf("flatten: constraint %s references unknown variable label %d", c.name, col)
				}
				p.A = append(p.A, Nonzero{Row: label, Col: col, Val: sums[col]})
			}
		}
	}

	if m.objective != nil {
		sums := coalesceTerms(m.objective.terms[0])
		for _, col := range sortedKeys(sums) {
			if _, ok := known[col]; !ok {
				return nil, errors.Errorf("flatten: objective references unknown variable label %d", col)
			}
			p.Obj = append(p.Obj, ObjCoef{Col: col, Val: sums[col]})
		}
		p.ObjConst = m.objective.consts[0]

		if m.objective.quads != nil {
			type pair struct{ i, j int }
			qsums := make(map[pair]float64)
			for _, q := range m.objective.quads[0] {
				if q.coef == 0 {
					continue
				}
				qsums[pair{q.i, q.j}] += q.coef
			}
			pairs := make([]pair, 0, len(qsums))
			for k := range qsums {
				pairs = append(pairs, k)
			}
			sort.Slice(pairs, func(a, b int) bool {
				if pairs[a].i != pairs[b].i {
					return pairs[a].i < pairs[b].i
				}
				return pairs[a].j < pairs[b].j
			})
			for _, k := range pairs {
				if _, ok := known[k.i]; !ok {
					return nil, errors.Errorf("flatten: quadratic objective references unknown variable label %d", k.i)
				}
				if _, ok := known[k.j]; !ok {
					return nil, errors.Errorf("flatten: quadratic objective references unknown variable label %d", k.j)
				}
				p.Q = append(p.Q, QuadCoef{I: k.i, J: k.j, Val: qsums[k]})
			}
		}
	}

	return p, nil
}

// fixIntegers returns a copy of the problem in which every integer column
// is fixed to its (rounded) primal value and integrality is cleared. The
// result is the continuous relaxation used by the fixed-duals protocol.
// In case of failure, function returns an error.
func fixIntegers(p *Problem, primal map[int]float64) (*Problem, error) {
	out := p.clone()
	out.Name = p.Name + "-fixed"
	for i, isInt := range out.Integer {
		if !isInt {
			continue
		}
		label := out.VarLabels[i]
		x, ok := primal[label]
		if !ok {
			return nil, &ShapeError{Kind: "variable", Label: label, Detail: "no primal value to fix integer column to"}
		}
		// Round away solver tolerance noise, then keep the fixed value
		// inside the original bounds.
		r := math.Round(x)
		if r < out.Lower[i] {
			r = out.Lower[i]
		}
		if r > out.Upper[i] {
			r = out.Upper[i]
		}
		out.Lower[i] = r
		out.Upper[i] = r
		out.Integer[i] = false
	}
	return out, nil
}
