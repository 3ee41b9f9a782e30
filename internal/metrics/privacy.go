package metrics

import (
	"strings"

	"github.com/venturalitica/venturalitica-go/internal/dataset"
)

// References:
//   Sweeney (2002), k-anonymity. Machanavajjhala et al. (2006), l-diversity.
//   Li et al. (2007), t-closeness.

func registerPrivacy(r *Registry) {
	r.Register("k_anonymity", calcKAnonymity, Metadata{
		Name:        "k-Anonymity",
		Category:    CategoryPrivacy,
		Description: "Minimum group size over the quasi-identifier combinations; higher is better.",
		Ideal:       5.0,
	})
	r.Register("l_diversity", calcLDiversity, Metadata{
		Name:        "l-Diversity",
		Category:    CategoryPrivacy,
		Description: "Minimum distinct sensitive values per quasi-identifier group; higher is better.",
		Ideal:       3.0,
	})
	r.Register("t_closeness", calcTCloseness, Metadata{
		Name:        "t-Closeness",
		Category:    CategoryPrivacy,
		Description: "Max L1 distance between group and overall sensitive distributions; lower is better.",
		Ideal:       0.0,
	})
	r.Register("data_minimization_score", calcDataMinimization, Metadata{
		Name:        "Data Minimization Score",
		Category:    CategoryPrivacy,
		Description: "1 - sensitive columns / total columns (GDPR Art. 5(1)(c)); higher is better.",
		Ideal:       1.0,
	})
}

// quasiIdentifiers pulls the resolved QI column list from control params.
func quasiIdentifiers(f *dataset.Frame, metric string, in Inputs) ([]string, error) {
	qi := in.Lists["quasi_identifiers"]
	if len(qi) == 0 {
		return nil, errf(metric, "quasi_identifiers required; name the columns that could re-identify rows, e.g. age, zip, gender")
	}
	var missing []string
	for _, col := range qi {
		if !f.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errf(metric, "quasi-identifier columns not found: %v; available: %v", missing, f.Columns())
	}
	return qi, nil
}

// qiGroups partitions row indices by the joint quasi-identifier value.
func qiGroups(f *dataset.Frame, qi []string) map[string][]int {
	cols := make([][]string, len(qi))
	for i, name := range qi {
		cols[i], _ = f.Column(name)
	}
	groups := make(map[string][]int)
	var key strings.Builder
	for row := 0; row < f.Len(); row++ {
		key.Reset()
		for i := range cols {
			if i > 0 {
				key.WriteByte(0x1f)
			}
			key.WriteString(cols[i][row])
		}
		groups[key.String()] = append(groups[key.String()], row)
	}
	return groups
}

func calcKAnonymity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "k_anonymity"
	if f.Len() == 0 {
		return 0, nil, errf(metric, "dataset is empty")
	}
	qi, err := quasiIdentifiers(f, metric, in)
	if err != nil {
		return 0, nil, err
	}
	k := f.Len()
	for _, rows := range qiGroups(f, qi) {
		if len(rows) < k {
			k = len(rows)
		}
	}
	return float64(k), nil, nil
}

func calcLDiversity(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "l_diversity"
	if f.Len() == 0 {
		return 0, nil, errf(metric, "dataset is empty")
	}
	qi, err := quasiIdentifiers(f, metric, in)
	if err != nil {
		return 0, nil, err
	}
	sensitive := in.Param("sensitive_attribute", "")
	if sensitive == "" {
		return 0, nil, errf(metric, "sensitive_attribute required (the column to protect, e.g. diagnosis)")
	}
	cells, err := f.Column(sensitive)
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}
	l := f.Len()
	for _, rows := range qiGroups(f, qi) {
		seen := make(map[string]bool)
		for _, i := range rows {
			seen[cells[i]] = true
		}
		if len(seen) < l {
			l = len(seen)
		}
	}
	return float64(l), nil, nil
}

func calcTCloseness(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "t_closeness"
	if f.Len() == 0 {
		return 0, nil, errf(metric, "dataset is empty")
	}
	qi, err := quasiIdentifiers(f, metric, in)
	if err != nil {
		return 0, nil, err
	}
	sensitive := in.Param("sensitive_attribute", "")
	if sensitive == "" {
		return 0, nil, errf(metric, "sensitive_attribute required")
	}
	cells, err := f.Column(sensitive)
	if err != nil {
		return 0, nil, errf(metric, "%v", err)
	}

	overall := distribution(cells, nil)
	var maxDist float64
	for _, rows := range qiGroups(f, qi) {
		group := distribution(cells, rows)
		var dist float64
		for val, p := range overall {
			dist += abs(p - group[val])
		}
		for val, p := range group {
			if _, ok := overall[val]; !ok {
				dist += p
			}
		}
		// L1 distance normalized to [0, 1].
		if dist = dist / 2; dist > maxDist {
			maxDist = dist
		}
	}
	return maxDist, nil, nil
}

// sensitiveKeywords drive auto-detection when no sensitive_columns param is
// supplied to data_minimization_score.
var sensitiveKeywords = []string{
	"age", "gender", "race", "ethnicity", "health", "medical",
	"income", "salary", "phone", "email", "ssn", "id",
}

func calcDataMinimization(f *dataset.Frame, in Inputs) (float64, map[string]float64, error) {
	const metric = "data_minimization_score"
	if len(f.Columns()) == 0 {
		return 0, nil, errf(metric, "dataset has no columns")
	}
	sensitive := in.Lists["sensitive_columns"]
	if len(sensitive) == 0 {
		for _, col := range f.Columns() {
			lower := strings.ToLower(col)
			for _, kw := range sensitiveKeywords {
				if strings.Contains(lower, kw) {
					sensitive = append(sensitive, col)
					break
				}
			}
		}
	}
	if len(sensitive) == 0 {
		return 1.0, nil, nil
	}
	var missing []string
	for _, col := range sensitive {
		if !f.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return 0, nil, errf(metric, "sensitive columns not found: %v", missing)
	}
	score := 1.0 - float64(len(sensitive))/float64(len(f.Columns()))
	if score < 0 {
		score = 0
	}
	return score, nil, nil
}

func distribution(cells []string, rows []int) map[string]float64 {
	dist := make(map[string]float64)
	if rows == nil {
		for _, c := range cells {
			dist[c]++
		}
		for k := range dist {
			dist[k] /= float64(len(cells))
		}
		return dist
	}
	for _, i := range rows {
		dist[cells[i]]++
	}
	for k := range dist {
		dist[k] /= float64(len(rows))
	}
	return dist
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
