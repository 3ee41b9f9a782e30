package metrics

import (
	"strings"
	"testing"

	"github.com/venturalitica/venturalitica-go/internal/dataset"
)

// fairnessFrame: male positive prediction rate 0.6, female 0.2.
// TPR: male 2/3, female 1/3. FPR: male 1/2, female 0.
func fairnessFrame(t *testing.T) *dataset.Frame {
	return mkFrame(t,
		[]string{"gender", "target", "prediction"},
		[][]string{
			{"male", "1", "1"},
			{"male", "1", "1"},
			{"male", "1", "0"},
			{"male", "0", "0"},
			{"male", "0", "1"},
			{"female", "1", "1"},
			{"female", "1", "0"},
			{"female", "0", "0"},
			{"female", "0", "0"},
			{"female", "1", "0"},
		})
}

func fairnessInputs() Inputs {
	return roles("target", "target", "prediction", "prediction", "dimension", "gender")
}

func TestDemographicParityDiff(t *testing.T) {
	v, detail, err := calcDemographicParity(fairnessFrame(t), fairnessInputs())
	if err != nil {
		t.Fatalf("calcDemographicParity: %v", err)
	}
	approx(t, "demographic_parity_diff", v, 0.4)
	approx(t, "detail[male]", detail["male"], 0.6)
	approx(t, "detail[female]", detail["female"], 0.2)
}

func TestEqualOpportunityDiff(t *testing.T) {
	v, _, err := calcEqualOpportunity(fairnessFrame(t), fairnessInputs())
	if err != nil {
		t.Fatalf("calcEqualOpportunity: %v", err)
	}
	approx(t, "equal_opportunity_diff", v, 2.0/3.0-1.0/3.0)
}

func TestEqualOpportunity_SkipsGroupsWithoutPositives(t *testing.T) {
	f := mkFrame(t,
		[]string{"gender", "target", "prediction"},
		[][]string{
			{"male", "1", "1"},
			{"male", "1", "0"},
			{"female", "0", "0"},
			{"female", "0", "1"},
		})
	v, _, err := calcEqualOpportunity(f, fairnessInputs())
	if err != nil {
		t.Fatalf("calcEqualOpportunity: %v", err)
	}
	// Only the male group has positives: single TPR, zero spread.
	approx(t, "equal_opportunity_diff", v, 0)
}

func TestEqualOpportunity_NoPositivesAnywhere(t *testing.T) {
	f := mkFrame(t,
		[]string{"gender", "target", "prediction"},
		[][]string{
			{"male", "0", "0"},
			{"female", "0", "1"},
		})
	_, _, err := calcEqualOpportunity(f, fairnessInputs())
	ce := wantComputationError(t, err)
	if !strings.Contains(ce.Reason, "no positive samples") {
		t.Errorf("Reason = %q", ce.Reason)
	}
}

func TestEqualizedOdds(t *testing.T) {
	v, _, err := calcEqualizedOdds(fairnessFrame(t), fairnessInputs())
	if err != nil {
		t.Fatalf("calcEqualizedOdds: %v", err)
	}
	// TPR spread 1/3 plus FPR spread 1/2.
	approx(t, "equalized_odds_ratio", v, (2.0/3.0-1.0/3.0)+0.5)
}

func TestPredictiveParity(t *testing.T) {
	v, _, err := calcPredictiveParity(fairnessFrame(t), fairnessInputs())
	if err != nil {
		t.Fatalf("calcPredictiveParity: %v", err)
	}
	// Male precision 2/3, female precision 1.
	approx(t, "predictive_parity", v, 1.0-2.0/3.0)
}

func TestFairness_MissingColumn(t *testing.T) {
	f := mkFrame(t, []string{"gender"}, [][]string{{"male"}})
	_, _, err := calcDemographicParity(f, fairnessInputs())
	ce := wantComputationError(t, err)
	if !strings.Contains(ce.Reason, "not found") {
		t.Errorf("Reason = %q", ce.Reason)
	}
}

func TestMulticlassDemographicParity(t *testing.T) {
	// Classes a and b; group g1 predicts a 3/4, g2 predicts a 1/4.
	f := mkFrame(t,
		[]string{"grp", "target", "prediction"},
		[][]string{
			{"g1", "a", "a"},
			{"g1", "a", "a"},
			{"g1", "b", "a"},
			{"g1", "b", "b"},
			{"g2", "a", "a"},
			{"g2", "a", "b"},
			{"g2", "b", "b"},
			{"g2", "b", "b"},
		})
	in := roles("target", "target", "prediction", "prediction", "dimension", "grp")

	v, _, err := calcMulticlassParity(f, in)
	if err != nil {
		t.Fatalf("calcMulticlassParity: %v", err)
	}
	// Per-class spread is 0.5 for both a and b; max aggregation.
	approx(t, "multiclass_demographic_parity", v, 0.5)
}

func TestMulticlassParity_MacroAggregation(t *testing.T) {
	f := mkFrame(t,
		[]string{"grp", "target", "prediction"},
		[][]string{
			{"g1", "a", "a"},
			{"g1", "b", "a"},
			{"g2", "a", "b"},
			{"g2", "b", "b"},
		})
	in := roles("target", "target", "prediction", "prediction", "dimension", "grp")
	in.Params = map[string]string{"aggregation": "macro"}

	v, _, err := calcMulticlassParity(f, in)
	if err != nil {
		t.Fatalf("calcMulticlassParity: %v", err)
	}
	// Class a spread 1.0, class b spread 1.0; macro mean 1.0.
	approx(t, "macro", v, 1.0)
}

func TestMulticlassParity_UnknownAggregation(t *testing.T) {
	f := mkFrame(t,
		[]string{"grp", "target", "prediction"},
		[][]string{
			{"g1", "a", "a"},
			{"g1", "b", "b"},
		})
	in := roles("target", "target", "prediction", "prediction", "dimension", "grp")
	in.Params = map[string]string{"aggregation": "median"}

	_, _, err := calcMulticlassParity(f, in)
	ce := wantComputationError(t, err)
	if !strings.Contains(ce.Reason, "unknown aggregation") {
		t.Errorf("Reason = %q", ce.Reason)
	}
}

func TestMulticlassParity_SingleClass(t *testing.T) {
	f := mkFrame(t,
		[]string{"grp", "target", "prediction"},
		[][]string{
			{"g1", "a", "a"},
			{"g2", "a", "a"},
		})
	in := roles("target", "target", "prediction", "prediction", "dimension", "grp")

	_, _, err := calcMulticlassParity(f, in)
	wantComputationError(t, err)
}

func TestMulticlassEqualOpportunity(t *testing.T) {
	// Class a: g1 TPR 1.0, g2 TPR 0.5. Class b: both groups TPR 1.0.
	f := mkFrame(t,
		[]string{"grp", "target", "prediction"},
		[][]string{
			{"g1", "a", "a"},
			{"g1", "a", "a"},
			{"g1", "b", "b"},
			{"g2", "a", "a"},
			{"g2", "a", "b"},
			{"g2", "b", "b"},
		})
	in := roles("target", "target", "prediction", "prediction", "dimension", "grp")

	v, _, err := calcMulticlassEqualOpportunity(f, in)
	if err != nil {
		t.Fatalf("calcMulticlassEqualOpportunity: %v", err)
	}
	approx(t, "multiclass_equal_opportunity", v, 0.5)
}
