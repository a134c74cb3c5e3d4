package linmod

// Result mapping: the inverse of flattening. Flat per-label values are
// reshaped onto each variable's and constraint's coordinate space by label,
// never by position, so the mapping stays correct for masked variables and
// for any emission order. Masked-out positions read back as NaN.

import "math"

// mapResult stores the flat solver result on the model and reshapes it into
// the labeled solution and dual datasets. A result without a primal
// solution (infeasible, unbounded) leaves the datasets absent. A result
// must cover every active label exactly: missing or surplus labels are
// reported as shape errors.
// In case of failure, function returns an error.
func (m *Model) mapResult(prob *Problem, res *SolverResult) error {
	m.objVal = res.Objective
	if res.Primal == nil {
		return nil
	}

	solution := make(map[string]*DataArray, len(m.vars))
	seen := 0
	for _, v := range m.vars {
		values := make([]float64, len(v.labels))
		for pos, label := range v.labels {
			if label < 0 {
				values[pos] = math.NaN()
				continue
			}
			x, ok := res.Primal[label]
			if !ok {
				return &ShapeError{Kind: "variable", Label: label, Detail: "solver result is missing variable " + v.name}
			}
			values[pos] = x
			seen++
		}
		solution[v.name] = &DataArray{coords: v.coords, values: values}
	}
	if seen != len(res.Primal) {
		return &ShapeError{Kind: "variable", Label: -1, Detail: "solver result contains labels this model never allocated"}
	}

	var dual map[string]*DataArray
	var dualFlat map[int]float64
	if res.Dual != nil {
		dual = make(map[string]*DataArray, len(m.cons))
		dualFlat = res.Dual
		seen = 0
		for _, c := range m.cons {
			values := make([]float64, len(c.labels))
			for pos, label := range c.labels {
				pi, ok := res.Dual[label]
				if !ok {
					return &ShapeError{Kind: "constraint", Label: label, Detail: "solver result is missing duals for constraint " + c.name}
				}
				values[pos] = pi
				seen++
			}
			dual[c.name] = &DataArray{coords: c.coords, values: values}
		}
		if seen != len(res.Dual) {
			return &ShapeError{Kind: "constraint", Label: -1, Detail: "solver result contains dual labels this model never allocated"}
		}
	}

	m.primal = res.Primal
	m.dualFlat = dualFlat
	m.solution = solution
	m.dual = dual
	return nil
}
