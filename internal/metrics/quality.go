package metrics

import "github.com/venturalitica/venturalitica-go/internal/dataset"

// minGroupSupport filters out protected groups too small to compare without
// noise when computing disparate impact.
const minGroupSupport = 5

func registerQuality(r *Registry) {
	r.Register("disparate_impact", calcDisparateImpact, Metadata{
		Name:        "Disparate Impact Ratio",
		Category:    CategoryQuality,
		Description: "min(positive rate) / max(positive rate) across protected groups; 80% rule wants >= 0.8.",
		Ideal:       1.0,
		Roles:       []string{"target", "dimension"},
		OptionalRoles: []string{
			"prediction", // audit outcome when bound, target otherwise
		},
	})
	r.Register("class_imbalance", calcClassImbalance, Metadata{
		Name:        "Class Imbalance Ratio",
		Category:    CategoryQuality,
		Description: "min class count / max class count; 1.0 is perfectly balanced.",
		Ideal:       1.0,
		Roles:       []string{"target"},
	})
	r.Register("group_min_positive_rate", calcGroupMinPositiveRate, Metadata{
		Name:        "Minimum Group Positive Rate",
		Category:    CategoryQuality,
		Description: "Lowest positive-outcome rate among protected groups, with per-group detail.",
		Ideal:       1.0,
		Roles:       []string{"target", "dimension"},
	})
	r.Register("data_completeness", calcDataCompleteness, Metadata{
		Name:        "Data Completeness",
		Category:    CategoryQuality,
		Description: "Fraction of non-empty cells across the dataset.",
		Ideal:       1.0,
	})
}

func calcDisparateImpact(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "disparate_impact"
	if err := requireCols(f, metric, in, "target", "dimension"); err != nil {
		return 0, nil, err
	}
	// Pre-training audits have no model output; the target itself is the
	// outcome whose distribution is examined.
	outcomeRole := "target"
	if col := in.Col("prediction"); col != "" && f.HasColumn(col) {
		outcomeRole = "prediction"
	}
	outcome, err := floatCol(f, metric, in, outcomeRole)
	if err != nil {
		return 0, nil, err
	}
	groups, err := f.GroupBy(in.Col("dimension"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}

	var rates []float64
	detail := make(map[string]float64)
	for _, key := range groups.Keys() {
		rows := groups.Rows(key)
		if len(rows) < minGroupSupport {
			continue
		}
		rate := meanAt(outcome, rows)
		rates = append(rates, rate)
		detail[key] = rate
	}
	if len(rates) < 2 {
		return 0, nil, errf(metric, "fewer than 2 groups with >= %d samples in dimension %q; ratio is not meaningful", minGroupSupport, in.Col("dimension"))
	}
	lo, hi := minMax(rates)
	if hi == 0 {
		return 0, nil, errf(metric, "no group has a positive outcome rate; ratio is undefined")
	}
	return lo / hi, detail, nil
}

func calcClassImbalance(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "class_imbalance"
	if err := requireCols(f, metric, in, "target"); err != nil {
		return 0, nil, err
	}
	groups, err := f.GroupBy(in.Col("target"))
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	if groups.Len() == 0 {
		return 0, nil, errf(metric, "target column %q has no values", in.Col("target"))
	}
	// A single class is worst-case imbalance, not an error.
	if groups.Len() == 1 {
		return 0.0, nil, nil
	}
	counts := make([]float64, 0, groups.Len())
	for _, key := range groups.Keys() {
		counts = append(counts, float64(len(groups.Rows(key))))
	}
	lo, hi := minMax(counts)
	return lo / hi, nil, nil
}

func calcGroupMinPositiveRate(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "group_min_positive_rate"
	if err := requireCols(f, metric, in, "target", "dimension"); err != nil {
		return 0, nil, err
	}
	y, err := floatCol(f, metric, in, "target")
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
	detail := make(map[string]float64, groups.Len())
	rates := make([]float64, 0, groups.Len())
	for _, key := range groups.Keys() {
		rate := meanAt(y, groups.Rows(key))
		detail[key] = rate
		rates = append(rates, rate)
	}
	lo, _ := minMax(rates)
	return lo, detail, nil
}

func calcDataCompleteness(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "data_completeness"
	if f.Len() == 0 || len(f.Columns()) == 0 {
		return 0, nil, errf(metric, "dataset is empty")
	}
	var filled, total int
	for _, col := range f.Columns() {
		cells, _ := f.Column(col)
		for _, c := range cells {
			total++
			if c != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(total), nil, nil
}
