package metrics

import (
	"github.com/venturalitica/venturalitica-go/internal/dataset"
)

func registerFairness(r *Registry) {
	r.Register("demographic_parity_diff", calcDemographicParity, Metadata{
		Name:        "Demographic Parity Difference",
		Category:    CategoryFairness,
		Description: "max(P(Ŷ=1|A=a)) - min(P(Ŷ=1|A=a)) across protected groups.",
		Ideal:       0.0,
		Roles:       []string{"target", "prediction", "dimension"},
	})
	r.Register("equal_opportunity_diff", calcEqualOpportunity, Metadata{
		Name:        "Equal Opportunity Difference",
		Category:    CategoryFairness,
		Description: "max(TPR|A=a) - min(TPR|A=a) across protected groups.",
		Ideal:       0.0,
		Roles:       []string{"target", "prediction", "dimension"},
	})
	r.Register("equalized_odds_ratio", calcEqualizedOdds, Metadata{
		Name:        "Equalized Odds",
		Category:    CategoryFairness,
		Description: "TPR spread plus FPR spread across protected groups (Hardt et al. 2016).",
		Ideal:       0.0,
		Roles:       []string{"target", "prediction", "dimension"},
	})
	r.Register("predictive_parity", calcPredictiveParity, Metadata{
		Name:        "Predictive Parity",
		Category:    CategoryFairness,
		Description: "Spread of positive predictive value across protected groups.",
		Ideal:       0.0,
		Roles:       []string{"target", "prediction", "dimension"},
	})
	r.Register("multiclass_demographic_parity", calcMulticlassParity, Metadata{
		Name:        "Multi-class Demographic Parity",
		Category:    CategoryFairness,
		Description: "One-vs-rest parity spread, aggregated max/macro/micro.",
		Ideal:       0.0,
		Roles:       []string{"target", "prediction", "dimension"},
	})
	r.Register("multiclass_equal_opportunity", calcMulticlassEqualOpportunity, Metadata{
		Name:        "Multi-class Equal Opportunity",
		Category:    CategoryFairness,
		Description: "One-vs-rest TPR parity spread, aggregated max/macro/micro.",
		Ideal:       0.0,
		Roles:       []string{"target", "prediction", "dimension"},
	})
}

func calcDemographicParity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "demographic_parity_diff"
	if err := requireCols(f, metric, in, "target", "prediction", "dimension"); err != nil {
		return 0, nil, err
	}
	pred, err := floatCol(f, metric, in, "prediction")
	if err != nil {
		return 0, nil, err
	}
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	if groups.Len() == 0 {
		return 0, nil, errf(metric, "no groups found in dimension %q", in.Col("dimension"))
	}
	rates := make([]float64, 0, groups.Len())
	detail := make(map[string]float64, groups.Len())
	for _, key := range groups.Keys() {
		rate := meanAt(pred, groups.Rows(key))
		rates = append(rates, rate)
		detail[key] = rate
	}
	lo, hi := minMax(rates)
	return hi - lo, detail, nil
}

func calcEqualOpportunity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "equal_opportunity_diff"
	if err := requireCols(f, metric, in, "target", "prediction", "dimension"); err != nil {
		return 0, nil, err
	}
	y, err := floatCol(f, metric, in, "target")
	if err != nil {
		return 0, nil, err
	}
	pred, err := floatCol(f, metric, in, "prediction")
	if err != nil {
		return 0, nil, err
	}
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	var tprs []float64
	for _, key := range groups.Keys() {
		var pos []int
		for _, i := range groups.Rows(key) {
			if y[i] == 1 {
				pos = append(pos, i)
			}
		}
		// Groups with no positive labels contribute no TPR.
		if len(pos) > 0 {
			tprs = append(tprs, meanAt(pred, pos))
		}
	}
	if len(tprs) == 0 {
		return 0, nil, errf(metric, "no positive samples in any group of dimension %q", in.Col("dimension"))
	}
	lo, hi := minMax(tprs)
	return hi - lo, nil, nil
}

func calcEqualizedOdds(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "equalized_odds_ratio"
	if err := requireCols(f, metric, in, "target", "prediction", "dimension"); err != nil {
		return 0, nil, err
	}
	y, err := floatCol(f, metric, in, "target")
	if err != nil {
		return 0, nil, err
	}
	pred, err := floatCol(f, metric, in, "prediction")
	if err != nil {
		return 0, nil, err
	}
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	var tprs, fprs []float64
	for _, key := range groups.Keys() {
		var pos, neg []int
		for _, i := range groups.Rows(key) {
			if y[i] == 1 {
				pos = append(pos, i)
			} else {
				neg = append(neg, i)
			}
		}
		if len(pos) > 0 {
			tprs = append(tprs, meanAt(pred, pos))
		}
		if len(neg) > 0 {
			var hits float64
			for _, i := range neg {
				if pred[i] == 1 {
					hits++
				}
			}
			fprs = append(fprs, hits/float64(len(neg)))
		}
	}
	if len(tprs) == 0 || len(fprs) == 0 {
		return 0, nil, errf(metric, "insufficient positive or negative samples for equalized odds")
	}
	tprLo, tprHi := minMax(tprs)
	fprLo, fprHi := minMax(fprs)
	return (tprHi - tprLo) + (fprHi - fprLo), nil, nil
}

func calcPredictiveParity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "predictive_parity"
	if err := requireCols(f, metric, in, "target", "prediction", "dimension"); err != nil {
		return 0, nil, err
	}
	y, err := floatCol(f, metric, in, "target")
	if err != nil {
		return 0, nil, err
	}
	pred, err := floatCol(f, metric, in, "prediction")
	if err != nil {
		return 0, nil, err
	}
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	var precisions []float64
	for _, key := range groups.Keys() {
		var tp, fp int
		for _, i := range groups.Rows(key) {
			if pred[i] == 1 {
				if y[i] == 1 {
					tp++
				} else {
					fp++
				}
			}
		}
		if tp+fp > 0 {
			precisions = append(precisions, float64(tp)/float64(tp+fp))
		}
	}
	if len(precisions) == 0 {
		return 0, nil, errf(metric, "no positive predictions in any group")
	}
	lo, hi := minMax(precisions)
	return hi - lo, nil, nil
}

// aggregate combines per-class spread values under the requested scheme.
func aggregate(metric, scheme string, values, weights []float64) (float64, error) {
	switch scheme {
	case "macro":
		return mean(values), nil
	case "micro":
		var sum float64
		for i, v := range values {
			sum += v * weights[i]
		}
		return sum, nil
	case "max", "":
		_, hi := minMax(values)
		return hi, nil
	default:
		return 0, errf(metric, "unknown aggregation %q (use max, macro, or micro)", scheme)
	}
}

func calcMulticlassParity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "multiclass_demographic_parity"
	if err := requireCols(f, metric, in, "target", "prediction", "dimension"); err != nil {
		return 0, nil, err
	}
	y := labels(f, in, "target")
	pred := labels(f, in, "prediction")
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	classes := distinct(y)
	if len(classes) < 2 {
		return 0, nil, errf(metric, "expected multi-class target, found %d unique value(s)", len(classes))
	}

	var parities, weights []float64
	for _, cls := range classes {
		var rates []float64
		for _, key := range groups.Keys() {
			rows := groups.Rows(key)
			var hits float64
			for _, i := range rows {
				if pred[i] == cls {
					hits++
				}
			}
			rates = append(rates, hits/float64(len(rows)))
		}
		lo, hi := minMax(rates)
		parities = append(parities, hi-lo)
		weights = append(weights, classShare(y, cls))
	}
	v, err := aggregate(metric, in.Param("aggregation", "max"), parities, weights)
	return v, nil, err
}

func calcMulticlassEqualOpportunity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "multiclass_equal_opportunity"
	if err := requireCols(f, metric, in, "target", "prediction", "dimension"); err != nil {
		return 0, nil, err
	}
	y := labels(f, in, "target")
	pred := labels(f, in, "prediction")
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	classes := distinct(y)
	if len(classes) < 2 {
		return 0, nil, errf(metric, "expected multi-class target, found %d unique value(s)", len(classes))
	}

	var parities, weights []float64
	for _, cls := range classes {
		var tprs []float64
		for _, key := range groups.Keys() {
			var tp, pos float64
			for _, i := range groups.Rows(key) {
				if y[i] == cls {
					pos++
					if pred[i] == cls {
						tp++
					}
				}
			}
			if pos > 0 {
				tprs = append(tprs, tp/pos)
			}
		}
		if len(tprs) == 0 {
			continue
		}
		lo, hi := minMax(tprs)
		parities = append(parities, hi-lo)
		weights = append(weights, classShare(y, cls))
	}
	if len(parities) == 0 {
		return 0, nil, errf(metric, "no true-positive rates computable for any class")
	}
	v, err := aggregate(metric, in.Param("aggregation", "max"), parities, weights)
	return v, nil, err
}

// distinct returns unique values in first-appearance order.
func distinct(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	var out []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func classShare(y []string, cls string) float64 {
	var n float64
	for _, v := range y {
		if v == cls {
			n++
		}
	}
	return n / float64(len(y))
}
