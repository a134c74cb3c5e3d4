package linmod

// Free-form MPS writer and reader. The writer emits the canonical problem
// section by section (NAME, OBJSENSE, ROWS, COLUMNS with integer marker
// lines, RHS, BOUNDS, QMATRIX, ENDATA) in a whitespace-delimited layout any
// free-MPS-capable solver accepts. The reader parses the same dialect back
// into a canonical problem, assigning labels in first-appearance order, so
// a written file round-trips to an equivalent problem.
//
// QMATRIX follows the CPLEX convention: the section holds the full
// symmetric matrix Q of the objective term (1/2) x'Qx, so a canonical
// diagonal coefficient c_ii is written as Q_ii = 2*c_ii and an off-diagonal
// c_ij (i < j) as the two entries Q_ij = Q_ji = c_ij.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const mpsObjName = "obj"
const mpsRHSName = "rhs"
const mpsBndName = "bnd"

// fnum formats a float at full round-trip precision.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteMPS serializes the canonical problem in free-form MPS format.
// In case of failure, function returns an error.
func (p *Problem) WriteMPS(w io.Writer) error {
	bw := bufio.NewWriter(w)

	name := p.Name
	if name == "" {
		name = "problem"
	}
	fmt.Fprintf(bw, "* free MPS written by linmod\n")
	fmt.Fprintf(bw, "NAME          %s\n", name)
	if p.Maximize {
		fmt.Fprintf(bw, "OBJSENSE\n    MAX\n")
	}

	// rows
	fmt.Fprintf(bw, "ROWS\n")
	fmt.Fprintf(bw, " N  %s\n", mpsObjName)
	for i := range p.ConLabels {
		fmt.Fprintf(bw, " %c  %s\n", byte(p.Senses[i]), p.ConName(i))
	}

	// columns; entries grouped per column, integer blocks bracketed by
	// marker lines
	objByCol := make(map[int]float64, len(p.Obj))
	for _, oc := range p.Obj {
		objByCol[oc.Col] = oc.Val
	}
	entriesByCol := make(map[int][]Nonzero, len(p.VarLabels))
	conIdx := p.conIndex()
	for _, nz := range p.A {
		if _, ok := conIdx[nz.Row]; !ok {
			return errors.Errorf("mps: coefficient references unknown constraint label %d", nz.Row)
		}
		entriesByCol[nz.Col] = append(entriesByCol[nz.Col], nz)
	}

	fmt.Fprintf(bw, "COLUMNS\n")
	inInteger := false
	marker := 0
	for i, label := range p.VarLabels {
		if p.Integer[i] != inInteger {
			kind := "'INTORG'"
			if !p.Integer[i] {
				kind = "'INTEND'"
			}
			fmt.Fprintf(bw, "    MARKER%d    'MARKER'    %s\n", marker, kind)
			marker++
			inInteger = p.Integer[i]
		}
		col := p.VarName(i)
		wrote := false
		if v, ok := objByCol[label]; ok {
			fmt.Fprintf(bw, "    %-10s %-10s %s\n", col, mpsObjName, fnum(v))
			wrote = true
		}
		for _, nz := range entriesByCol[label] {
			row := p.ConName(conIdx[nz.Row])
			fmt.Fprintf(bw, "    %-10s %-10s %s\n", col, row, fnum(nz.Val))
			wrote = true
		}
		if !wrote {
			// a column must appear in COLUMNS to exist
			fmt.Fprintf(bw, "    %-10s %-10s 0\n", col, mpsObjName)
		}
	}
	if inInteger {
		fmt.Fprintf(bw, "    MARKER%d    'MARKER'    'INTEND'\n", marker)
	}

	// right-hand sides; a constant in the objective is stored negated on
	// the objective row, per MPS convention
	fmt.Fprintf(bw, "RHS\n")
	if p.ObjConst != 0 {
		fmt.Fprintf(bw, "    %-10s %-10s %s\n", mpsRHSName, mpsObjName, fnum(-p.ObjConst))
	}
	for i := range p.ConLabels {
		fmt.Fprintf(bw, "    %-10s %-10s %s\n", mpsRHSName, p.ConName(i), fnum(p.RHS[i]))
	}

	// bounds; emitted explicitly for every column so no reader-side
	// integer default applies
	fmt.Fprintf(bw, "BOUNDS\n")
	for i := range p.VarLabels {
		col := p.VarName(i)
		lo, up := p.Lower[i], p.Upper[i]
		switch {
		case lo == up:
			fmt.Fprintf(bw, " FX %-10s %-10s %s\n", mpsBndName, col, fnum(lo))
		case math.IsInf(lo, -1) && math.IsInf(up, 1):
			fmt.Fprintf(bw, " FR %-10s %-10s\n", mpsBndName, col)
		default:
			if math.IsInf(lo, -1) {
				fmt.Fprintf(bw, " MI %-10s %-10s\n", mpsBndName, col)
			} else {
				fmt.Fprintf(bw, " LO %-10s %-10s %s\n", mpsBndName, col, fnum(lo))
			}
			if math.IsInf(up, 1) {
				fmt.Fprintf(bw, " PL %-10s %-10s\n", mpsBndName, col)
			} else {
				fmt.Fprintf(bw, " UP %-10s %-10s %s\n", mpsBndName, col, fnum(up))
			}
		}
	}

	if len(p.Q) > 0 {
		fmt.Fprintf(bw, "QMATRIX\n")
		varIdx := p.varIndex()
		for _, q := range p.Q {
			ci, okI := varIdx[q.I]
			cj, okJ := varIdx[q.J]
			if !okI || !okJ {
				return errors.Errorf("mps: quadratic coefficient references unknown variable label")
			}
			if q.I == q.J {
				fmt.Fprintf(bw, "    %-10s %-10s %s\n", p.VarName(ci), p.VarName(cj), fnum(2*q.Val))
			} else {
				fmt.Fprintf(bw, "    %-10s %-10s %s\n", p.VarName(ci), p.VarName(cj), fnum(q.Val))
				fmt.Fprintf(bw, "    %-10s %-10s %s\n", p.VarName(cj), p.VarName(ci), fnum(q.Val))
			}
		}
	}

	fmt.Fprintf(bw, "ENDATA\n")
	return errors.Wrap(bw.Flush(), "mps: write failed")
}

// WriteMPSFile serializes the problem to the named file.
// In case of failure, function returns an error.
func (p *Problem) WriteMPSFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "mps: failed to create file")
	}
	defer f.Close()
	return p.WriteMPS(f)
}

// mpsParser carries the reader state across sections.
type mpsParser struct {
	prob   *Problem
	rowIdx map[string]int // constraint name -> row position
	colIdx map[string]int // column name -> column position
	objRow string
	inInt  bool
	quad   map[[2]int]float64
}

// newCol registers a column on first appearance, with MPS default bounds
// [0, +inf) and the current integrality marker state.
func (ps *mpsParser) newCol(name string) int {
	if i, ok := ps.colIdx[name]; ok {
		return i
	}
	p := ps.prob
	i := len(p.VarLabels)
	ps.colIdx[name] = i
	p.VarLabels = append(p.VarLabels, i)
	p.VarNames = append(p.VarNames, name)
	p.Lower = append(p.Lower, 0)
	p.Upper = append(p.Upper, math.Inf(1))
	p.Integer = append(p.Integer, ps.inInt)
	return i
}

// ReadMPS parses a free-form MPS problem. Row and column labels are
// assigned in order of first appearance; names are preserved.
// In case of failure, function returns an error.
func ReadMPS(r io.Reader) (*Problem, error) {
	ps := &mpsParser{
		prob:   &Problem{},
		rowIdx: make(map[string]int),
		colIdx: make(map[string]int),
		quad:   make(map[[2]int]float64),
	}
	p := ps.prob

	section := ""
	sawEnd := false
	lineNum := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "*") || strings.TrimSpace(line) == "" {
			continue
		}

		// section headers start in column one
		if line[0] != ' ' && line[0] != '\t' {
			fields := strings.Fields(line)
			section = strings.ToUpper(fields[0])
			switch section {
			case "NAME":
				if len(fields) > 1 {
					p.Name = fields[1]
				}
			case "OBJSENSE":
				// the sense may sit on the header line or on the next
				// indented line
				if len(fields) > 1 {
					if err := ps.parseLine("OBJSENSE", fields[1:], lineNum); err != nil {
						return nil, err
					}
				}
			case "ROWS", "COLUMNS", "RHS", "BOUNDS", "QMATRIX", "QUADOBJ":
			case "RANGES":
				return nil, errors.Errorf("mps: line %d: RANGES sections are not supported", lineNum)
			case "ENDATA":
				sawEnd = true
			default:
				return nil, errors.Errorf("mps: line %d: unknown section %q", lineNum, section)
			}
			if sawEnd {
				break
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := ps.parseLine(section, fields, lineNum); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "mps: read failed")
	}
	if !sawEnd {
		return nil, errors.New("mps: missing ENDATA")
	}
	if ps.objRow == "" {
		return nil, errors.New("mps: no objective (N) row")
	}

	ps.finishQuad()
	return p, nil
}

// parseLine dispatches one data line to its section handler.
// In case of failure, function returns an error.
func (ps *mpsParser) parseLine(section string, fields []string, lineNum int) error {
	p := ps.prob
	switch section {
	case "OBJSENSE":
		switch strings.ToUpper(fields[0]) {
		case "MAX", "MAXIMIZE":
			p.Maximize = true
		case "MIN", "MINIMIZE":
			p.Maximize = false
		default:
			return errors.Errorf("mps: line %d: bad OBJSENSE %q", lineNum, fields[0])
		}

	case "ROWS":
		if len(fields) != 2 {
			return errors.Errorf("mps: line %d: malformed row line", lineNum)
		}
		kind, name := strings.ToUpper(fields[0]), fields[1]
		switch kind {
		case "N":
			if ps.objRow != "" {
				return errors.Errorf("mps: line %d: multiple free (N) rows", lineNum)
			}
			ps.objRow = name
		case "L", "E", "G":
			if _, dup := ps.rowIdx[name]; dup {
				return errors.Errorf("mps: line %d: duplicate row %q", lineNum, name)
			}
			i := len(p.ConLabels)
			ps.rowIdx[name] = i
			p.ConLabels = append(p.ConLabels, i)
			p.ConNames = append(p.ConNames, name)
			p.Senses = append(p.Senses, Sense(kind[0]))
			p.RHS = append(p.RHS, 0)
		default:
			return errors.Errorf("mps: line %d: unknown row type %q", lineNum, kind)
		}

	case "COLUMNS":
		if len(fields) >= 3 && strings.Trim(fields[1], "'") == "MARKER" {
			switch strings.Trim(fields[len(fields)-1], "'") {
			case "INTORG":
				ps.inInt = true
			case "INTEND":
				ps.inInt = false
			default:
				return errors.Errorf("mps: line %d: unknown marker", lineNum)
			}
			return nil
		}
		if len(fields) < 3 || len(fields)%2 == 0 {
			return errors.Errorf("mps: line %d: malformed column line", lineNum)
		}
		ci := ps.newCol(fields[0])
		for k := 1; k+1 < len(fields); k += 2 {
			row, valStr := fields[k], fields[k+1]
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return errors.Wrapf(err, "mps: line %d: bad coefficient", lineNum)
			}
			if row == ps.objRow {
				if val != 0 {
					p.Obj = append(p.Obj, ObjCoef{Col: p.VarLabels[ci], Val: val})
				}
				continue
			}
			ri, ok := ps.rowIdx[row]
			if !ok {
				return errors.Errorf("mps: line %d: unknown row %q", lineNum, row)
			}
			p.A = append(p.A, Nonzero{Row: p.ConLabels[ri], Col: p.VarLabels[ci], Val: val})
		}

	case "RHS":
		if len(fields) < 3 || len(fields)%2 == 0 {
			return errors.Errorf("mps: line %d: malformed RHS line", lineNum)
		}
		for k := 1; k+1 < len(fields); k += 2 {
			row, valStr := fields[k], fields[k+1]
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return errors.Wrapf(err, "mps: line %d: bad RHS value", lineNum)
			}
			if row == ps.objRow {
				p.ObjConst = -val
				continue
			}
			ri, ok := ps.rowIdx[row]
			if !ok {
				return errors.Errorf("mps: line %d: unknown row %q", lineNum, row)
			}
			p.RHS[ri] = val
		}

	case "BOUNDS":
		if len(fields) < 3 {
			return errors.Errorf("mps: line %d: malformed bound line", lineNum)
		}
		kind := strings.ToUpper(fields[0])
		ci, ok := ps.colIdx[fields[2]]
		if !ok {
			return errors.Errorf("mps: line %d: bound on unknown column %q", lineNum, fields[2])
		}
		var val float64
		needsVal := kind == "UP" || kind == "LO" || kind == "FX" || kind == "UI" || kind == "LI"
		if needsVal {
			if len(fields) < 4 {
				return errors.Errorf("mps: line %d: bound %s requires a value", lineNum, kind)
			}
			var err error
			if val, err = strconv.ParseFloat(fields[3], 64); err != nil {
				return errors.Wrapf(err, "mps: line %d: bad bound value", lineNum)
			}
		}
		switch kind {
		case "UP":
			p.Upper[ci] = val
		case "LO":
			p.Lower[ci] = val
		case "FX":
			p.Lower[ci], p.Upper[ci] = val, val
		case "FR":
			p.Lower[ci], p.Upper[ci] = math.Inf(-1), math.Inf(1)
		case "MI":
			p.Lower[ci] = math.Inf(-1)
		case "PL":
			p.Upper[ci] = math.Inf(1)
		case "BV":
			p.Integer[ci] = true
			p.Lower[ci], p.Upper[ci] = 0, 1
		case "UI":
			p.Integer[ci] = true
			p.Upper[ci] = val
		case "LI":
			p.Integer[ci] = true
			p.Lower[ci] = val
		default:
			return errors.Errorf("mps: line %d: unknown bound type %q", lineNum, kind)
		}

	case "QMATRIX", "QUADOBJ":
		if len(fields) != 3 {
			return errors.Errorf("mps: line %d: malformed quadratic line", lineNum)
		}
		ci, ok := ps.colIdx[fields[0]]
		if !ok {
			return errors.Errorf("mps: line %d: unknown column %q", lineNum, fields[0])
		}
		cj, ok := ps.colIdx[fields[1]]
		if !ok {
			return errors.Errorf("mps: line %d: unknown column %q", lineNum, fields[1])
		}
		val, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return errors.Wrapf(err, "mps: line %d: bad quadratic value", lineNum)
		}
		i, j := ps.prob.VarLabels[ci], ps.prob.VarLabels[cj]
		if i > j {
			i, j = j, i
		}
		// QMATRIX repeats off-diagonal entries symmetrically; QUADOBJ lists
		// each pair once with symmetry implied, so its cross terms are
		// doubled here to match. finishQuad halves per the 1/2 x'Qx
		// convention either way.
		if section == "QUADOBJ" && i != j {
			val *= 2
		}
		ps.quad[[2]int{i, j}] += val

	default:
		return errors.Errorf("mps: line %d: data outside any section", lineNum)
	}
	return nil
}

// finishQuad converts accumulated quadratic entries back to canonical
// coefficients: every (i,j) pair was accumulated from its symmetric
// appearances, and the whole matrix carries the 1/2 x'Qx convention, so
// the canonical coefficient is half the accumulated value.
func (ps *mpsParser) finishQuad() {
	if len(ps.quad) == 0 {
		return
	}
	keys := sortedQuadKeys(ps.quad)
	for _, k := range keys {
		ps.prob.Q = append(ps.prob.Q, QuadCoef{I: k[0], J: k[1], Val: ps.quad[k] / 2})
	}
}

// sortedQuadKeys orders quadratic keys by (i, j).
func sortedQuadKeys(m map[[2]int]float64) [][2]int {
	keys := make([][2]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	return keys
}

// ReadMPSFile parses a free-form MPS problem from the named file.
// In case of failure, function returns an error.
func ReadMPSFile(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "mps: failed to open file")
	}
	defer f.Close()
	return ReadMPS(f)
}
