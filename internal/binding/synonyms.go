package binding

// DefaultSynonyms is the built-in fallback table mapping a semantic variable
// (or role) to column-name candidates. Candidate order is the declaration
// order, and the first candidate present in the dataset wins; the precedence
// is deterministic but arbitrary. Callers can inject their own table via
// NewResolver.
var DefaultSynonyms = map[string][]string{
	"gender": {"sex", "gender", "sexo", "Attribute9"},
	"age":    {"age", "age_group", "edad", "Attribute13"},
	"race":   {"race", "ethnicity", "raza"},
	"target": {
		"target", "class", "label", "y", "true_label",
		"ground_truth", "approved", "default", "outcome",
	},
	"prediction": {
		"prediction", "pred", "y_pred", "predictions",
		"score", "proba", "output",
	},
	"dimension": {
		"sex", "gender", "age", "race", "Attribute9", "Attribute13",
	},
}
