package linmod

// Linear expressions over labeled coordinates. Each position of an
// expression holds a list of (coefficient, variable label) terms plus a
// constant, and optionally quadratic (coefficient, label, label) terms.
// Term lists are kept raw as built; coalescing of duplicate labels happens
// at flattening time, so NTerm reports the term count as constructed.
//
// Building expressions never touches a solver.

// term is one (coefficient, variable label) pair at one position.
type term struct {
	coef  float64
	label int
}

// quadTerm is one quadratic term coef*x_i*x_j with i <= j.
type quadTerm struct {
	coef float64
	i, j int
}

// LinExpr is a labeled array of affine (and optionally quadratic) terms.
type LinExpr struct {
	coords Coords
	terms  [][]term
	consts []float64
	quads  [][]quadTerm // nil for purely linear expressions
}

// newZeroExpr returns the zero expression over the given coordinates.
func newZeroExpr(c Coords) *LinExpr {
	n := c.Size()
	return &LinExpr{
		coords: c,
		terms:  make([][]term, n),
		consts: make([]float64, n),
	}
}

// ConstExpr turns a data array into a constant expression.
func ConstExpr(a *DataArray) *LinExpr {
	e := newZeroExpr(a.coords)
	copy(e.consts, a.values)
	return e
}

// Coords returns the coordinate space of the expression.
func (e *LinExpr) Coords() Coords { return e.coords }

// NTerm returns the largest number of linear terms held at any position,
// counted as constructed (before coalescing).
func (e *LinExpr) NTerm() int {
	n := 0
	for _, ts := range e.terms {
		if len(ts) > n {
			n = len(ts)
		}
	}
	return n
}

// IsQuadratic reports whether the expression carries quadratic terms.
func (e *LinExpr) IsQuadratic() bool {
	for _, qs := range e.quads {
		if len(qs) > 0 {
			return true
		}
	}
	return false
}

// clone deep-copies the expression.
func (e *LinExpr) clone() *LinExpr {
	out := &LinExpr{
		coords: e.coords,
		terms:  make([][]term, len(e.terms)),
		consts: append([]float64(nil), e.consts...),
	}
	for i, ts := range e.terms {
		out.terms[i] = append([]term(nil), ts...)
	}
	if e.quads != nil {
		out.quads = make([][]quadTerm, len(e.quads))
		for i, qs := range e.quads {
			out.quads[i] = append([]quadTerm(nil), qs...)
		}
	}
	return out
}

// broadcastTo expands the expression onto a broadcast coordinate space;
// positions not covered by the source carry no terms (zero coefficients).
// In case of failure, function returns an error.
func (e *LinExpr) broadcastTo(c Coords) (*LinExpr, error) {
	if e.coords.Equal(c) {
		return e.clone(), nil
	}
	indexer, err := c.indexerFrom(e.coords)
	if err != nil {
		return nil, err
	}
	out := newZeroExpr(c)
	if e.quads != nil {
		out.quads = make([][]quadTerm, c.Size())
	}
	for pos, src := range indexer {
		if src < 0 {
			continue
		}
		out.terms[pos] = append([]term(nil), e.terms[src]...)
		out.consts[pos] = e.consts[src]
		if e.quads != nil {
			out.quads[pos] = append([]quadTerm(nil), e.quads[src]...)
		}
	}
	return out, nil
}

// Add returns the elementwise sum of two expressions over the broadcast of
// their coordinate spaces.
// In case of failure, function returns an error.
func (e *LinExpr) Add(o *LinExpr) (*LinExpr, error) {
	bc := broadcastCoords(e.coords, o.coords)
	a, err := e.broadcastTo(bc)
	if err != nil {
		return nil, err
	}
	b, err := o.broadcastTo(bc)
	if err != nil {
		return nil, err
	}
	for pos := range a.terms {
		a.terms[pos] = append(a.terms[pos], b.terms[pos]...)
		a.consts[pos] += b.consts[pos]
	}
	if b.quads != nil {
		if a.quads == nil {
			a.quads = make([][]quadTerm, len(a.terms))
		}
		for pos := range b.quads {
			a.quads[pos] = append(a.quads[pos], b.quads[pos]...)
		}
	}
	return a, nil
}

// Sub returns e - o.
// In case of failure, function returns an error.
func (e *LinExpr) Sub(o *LinExpr) (*LinExpr, error) {
	return e.Add(o.Scale(-1))
}

// Scale returns the expression with every coefficient, constant, and
// quadratic coefficient multiplied by f.
func (e *LinExpr) Scale(f float64) *LinExpr {
	out := e.clone()
	for pos := range out.terms {
		for i := range out.terms[pos] {
			out.terms[pos][i].coef *= f
		}
		out.consts[pos] *= f
	}
	for pos := range out.quads {
		for i := range out.quads[pos] {
			out.quads[pos][i].coef *= f
		}
	}
	return out
}

// Shift returns the expression with the constant f added at every position.
func (e *LinExpr) Shift(f float64) *LinExpr {
	out := e.clone()
	for pos := range out.consts {
		out.consts[pos] += f
	}
	return out
}

// AddArray adds a constant array to the expression, broadcasting as needed.
// In case of failure, function returns an error.
func (e *LinExpr) AddArray(a *DataArray) (*LinExpr, error) {
	return e.Add(ConstExpr(a))
}

// MulArray multiplies the expression elementwise by a constant array,
// broadcasting as needed. Positions the array does not cover multiply by
// zero.
// In case of failure, function returns an error.
func (e *LinExpr) MulArray(a *DataArray) (*LinExpr, error) {
	bc := broadcastCoords(e.coords, a.coords)
	out, err := e.broadcastTo(bc)
	if err != nil {
		return nil, err
	}
	av, err := a.broadcastTo(bc, 0)
	if err != nil {
		return nil, err
	}
	for pos := range out.terms {
		f := av.values[pos]
		for i := range out.terms[pos] {
			out.terms[pos][i].coef *= f
		}
		out.consts[pos] *= f
		if out.quads != nil {
			for i := range out.quads[pos] {
				out.quads[pos][i].coef *= f
			}
		}
	}
	return out, nil
}

// MulExpr multiplies two expressions elementwise. Both operands must be
// purely linear; the result carries quadratic terms and may only be used
// as an objective.
// In case of failure, function returns an error.
func (e *LinExpr) MulExpr(o *LinExpr) (*LinExpr, error) {
	if e.IsQuadratic() || o.IsQuadratic() {
		return nil, buildErrorf("MulExpr", "product of nonlinear terms is not representable")
	}
	bc := broadcastCoords(e.coords, o.coords)
	a, err := e.broadcastTo(bc)
	if err != nil {
		return nil, err
	}
	b, err := o.broadcastTo(bc)
	if err != nil {
		return nil, err
	}
	out := newZeroExpr(bc)
	out.quads = make([][]quadTerm, bc.Size())
	for pos := range out.terms {
		// constant * constant
		out.consts[pos] = a.consts[pos] * b.consts[pos]
		// linear * constant on both sides
		for _, t := range a.terms[pos] {
			if c := t.coef * b.consts[pos]; c != 0 {
				out.terms[pos] = append(out.terms[pos], term{coef: c, label: t.label})
			}
		}
		for _, t := range b.terms[pos] {
			if c := t.coef * a.consts[pos]; c != 0 {
				out.terms[pos] = append(out.terms[pos], term{coef: c, label: t.label})
			}
		}
		// linear * linear
		for _, ta := range a.terms[pos] {
			for _, tb := range b.terms[pos] {
				i, j := ta.label, tb.label
				if i > j {
					i, j = j, i
				}
				out.quads[pos] = append(out.quads[pos], quadTerm{coef: ta.coef * tb.coef, i: i, j: j})
			}
		}
	}
	return out, nil
}

// Sum reduces the expression over all of its dimensions to a scalar
// expression; term lists are concatenated, constants and quadratic terms
// summed.
func (e *LinExpr) Sum() *LinExpr {
	out := newZeroExpr(Coords{})
	for pos := range e.terms {
		out.terms[0] = append(out.terms[0], e.terms[pos]...)
		out.consts[0] += e.consts[pos]
	}
	if e.quads != nil {
		out.quads = make([][]quadTerm, 1)
		for pos := range e.quads {
			out.quads[0] = append(out.quads[0], e.quads[pos]...)
		}
	}
	return out
}

// AddExprs sums any number of expressions.
// In case of failure, function returns an error.
func AddExprs(exprs ...*LinExpr) (*LinExpr, error) {
	if len(exprs) == 0 {
		return nil, buildErrorf("AddExprs", "no expressions given")
	}
	out := exprs[0]
	var err error
	for _, e := range exprs[1:] {
		if out, err = out.Add(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// compare builds an unregistered constraint from the expression, a sense,
// and a right-hand-side array. Constants on the left move to the right.
// In case of failure, function returns an error.
func (e *LinExpr) compare(sense Sense, rhs *DataArray) (*Constraint, error) {
	if e.IsQuadratic() {
		return nil, buildErrorf("compare", "quadratic expressions cannot form constraints")
	}
	bc := broadcastCoords(e.coords, rhs.coords)
	lhs, err := e.broadcastTo(bc)
	if err != nil {
		return nil, err
	}
	rv, err := rhs.broadcastTo(bc, 0)
	if err != nil {
		return nil, err
	}
	con := &Constraint{
		coords: bc,
		terms:  lhs.terms,
		rhs:    make([]float64, bc.Size()),
		sense:  sense,
	}
	for pos := range con.rhs {
		con.rhs[pos] = rv.values[pos] - lhs.consts[pos]
	}
	return con, nil
}

// LessEq builds the constraint e <= rhs.
// In case of failure, function returns an error.
func (e *LinExpr) LessEq(rhs *DataArray) (*Constraint, error) {
	return e.compare(SenseLE, rhs)
}

// Equal builds the constraint e == rhs.
// In case of failure, function returns an error.
func (e *LinExpr) Equal(rhs *DataArray) (*Constraint, error) {
	return e.compare(SenseEQ, rhs)
}

// GreaterEq builds the constraint e >= rhs.
// In case of failure, function returns an error.
func (e *LinExpr) GreaterEq(rhs *DataArray) (*Constraint, error) {
	return e.compare(SenseGE, rhs)
}
