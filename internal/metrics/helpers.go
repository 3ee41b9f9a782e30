package metrics

import (
	"strconv"

	"github.com/venturalitica/venturalitica-go/internal/dataset"
)

// requireCols checks that every role-bound column actually exists in the
// frame, returning a ComputationError naming the gap otherwise.
func requireCols(f *dataset.Frame, metric string, in Inputs, roles ...string) error {
	if f.Len() == 0 {
		return errf(metric, "dataset is empty")
	}
	for _, role := range roles {
		col := in.Col(role)
		if col == "" {
			return errf(metric, "role %q is not bound to any column", role)
		}
		if !f.HasColumn(col) {
			return errf(metric, "column %q (role %q) not found in dataset; available: %v", col, role, f.Columns())
		}
	}
	return nil
}

// floatCol parses a role-bound column as numeric.
func floatCol(f *dataset.Frame, metric string, in Inputs, role string) ([]float64, error) {
	vals, err := f.Floats(in.Col(role))
	if err != nil {
		return nil, errf(metric, "%v", err)
	}
	return vals, nil
}

// labels returns the raw cells of a role-bound column, for categorical use.
func labels(f *dataset.Frame, in Inputs, role string) []string {
	cells, _ := f.Column(in.Col(role))
	return cells
}

// mean of a float slice; callers guarantee non-empty.
func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// meanAt averages vals over the given row indices.
func meanAt(vals []float64, rows []int) float64 {
	var sum float64
	for _, i := range rows {
		sum += vals[i]
	}
	return sum / float64(len(rows))
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// sameLabel compares two cells, numerically when both parse as numbers so
// "1" and "1.0" agree, lexically otherwise.
func sameLabel(a, b string) bool {
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}
