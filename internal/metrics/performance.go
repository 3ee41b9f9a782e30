package metrics

import "github.com/venturalitica/venturalitica-go/internal/dataset"

func registerPerformance(r *Registry) {
	r.Register("accuracy_score", calcAccuracy, Metadata{
		Name:        "Accuracy",
		Category:    CategoryPerformance,
		Description: "Fraction of predictions matching the target label.",
		Ideal:       1.0,
		Roles:       []string{"target", "prediction"},
	})
	r.Register("precision_score", calcPrecision, Metadata{
		Name:        "Precision",
		Category:    CategoryPerformance,
		Description: "TP / (TP + FP) for the positive class.",
		Ideal:       1.0,
		Roles:       []string{"target", "prediction"},
	})
	r.Register("recall_score", calcRecall, Metadata{
		Name:        "Recall",
		Category:    CategoryPerformance,
		Description: "TP / (TP + FN) for the positive class.",
		Ideal:       1.0,
		Roles:       []string{"target", "prediction"},
	})
	r.Register("f1_score", calcF1, Metadata{
		Name:        "F1 Score",
		Category:    CategoryPerformance,
		Description: "Harmonic mean of precision and recall.",
		Ideal:       1.0,
		Roles:       []string{"target", "prediction"},
	})
	r.Register("mean_score", calcMean, Metadata{
		Name:        "Mean Score",
		Category:    CategoryPerformance,
		Description: "Mean of the target column; generic for benchmark scores.",
		Ideal:       1.0,
		Roles:       []string{"target"},
	})
}

func calcAccuracy(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "accuracy_score"
	if err := requireCols(f, metric, in, "target", "prediction"); err != nil {
		return 0, nil, err
	}
	y := labels(f, in, "target")
	pred := labels(f, in, "prediction")
	hits := 0
	for i := range y {
		if sameLabel(y[i], pred[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(y)), nil, nil
}

// confusion tallies the binary confusion counts, treating label 1 as
// positive. Non-binary inputs are a precondition failure.
func confusion(f *dataset.Frame, metric string, in Inputs) (tp, fp, fn, tn int, err error) {
	y, err := floatCol(f, metric, in, "target")
	if err != nil {
		return 0, 0, 0, 0, err
	}
	pred, err := floatCol(f, metric, in, "prediction")
	if err != nil {
		return 0, 0, 0, 0, err
	}
	for i := range y {
		if y[i] != 0 && y[i] != 1 || pred[i] != 0 && pred[i] != 1 {
			return 0, 0, 0, 0, errf(metric, "binary metric requires 0/1 labels, got target=%v prediction=%v at row %d", y[i], pred[i], i)
		}
		switch {
		case y[i] == 1 && pred[i] == 1:
			tp++
		case y[i] == 0 && pred[i] == 1:
			fp++
		case y[i] == 1 && pred[i] == 0:
			fn++
		default:
			tn++
		}
	}
	return tp, fp, fn, tn, nil
}

func calcPrecision(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "precision_score"
	if err := requireCols(f, metric, in, "target", "prediction"); err != nil {
		return 0, nil, err
	}
	tp, fp, _, _, err := confusion(f, metric, in)
	if err != nil {
		return 0, nil, err
	}
	if tp+fp == 0 {
		return 0, nil, errf(metric, "no positive predictions; precision is undefined")
	}
	return float64(tp) / float64(tp+fp), nil, nil
}

func calcRecall(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "recall_score"
	if err := requireCols(f, metric, in, "target", "prediction"); err != nil {
		return 0, nil, err
	}
	tp, _, fn, _, err := confusion(f, metric, in)
	if err != nil {
		return 0, nil, err
	}
	if tp+fn == 0 {
		return 0, nil, errf(metric, "no positive labels in target; recall is undefined")
	}
	return float64(tp) / float64(tp+fn), nil, nil
}

func calcF1(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "f1_score"
	if err := requireCols(f, metric, in, "target", "prediction"); err != nil {
		return 0, nil, err
	}
	tp, fp, fn, _, err := confusion(f, metric, in)
	if err != nil {
		return 0, nil, err
	}
	if tp+fp == 0 || tp+fn == 0 {
		return 0, nil, errf(metric, "degenerate confusion matrix (tp=%d fp=%d fn=%d); f1 is undefined", tp, fp, fn)
	}
	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	if precision+recall == 0 {
		return 0, nil, nil
	}
	return 2 * precision * recall / (precision + recall), nil, nil
}

func calcMean(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "mean_score"
	if err := requireCols(f, metric, in, "target"); err != nil {
		return 0, nil, err
	}
	vals, err := floatCol(f, metric, in, "target")
	if err != nil {
		return 0, nil, err
	}
	return mean(vals), nil, nil
}
