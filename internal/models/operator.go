package models

import "fmt"

// Operator is a threshold comparison. Both symbolic forms (<, <=, >, >=,
// ==, !=) and named OSCAL-prop forms (lt, lte/le, gt, gte/ge, eq, ne/neq)
// are accepted; named aliases normalize to the symbolic form.
type Operator string

const (
	OpLT Operator = "<"
	OpLE Operator = "<="
	OpGT Operator = ">"
	OpGE Operator = ">="
	OpEQ Operator = "=="
	OpNE Operator = "!="
)

var operatorAliases = map[string]Operator{
	"<":   OpLT,
	"lt":  OpLT,
	"<=":  OpLE,
	"lte": OpLE,
	"le":  OpLE,
	">":   OpGT,
	"gt":  OpGT,
	">=":  OpGE,
	"gte": OpGE,
	"ge":  OpGE,
	"==":  OpEQ,
	"eq":  OpEQ,
	"!=":  OpNE,
	"ne":  OpNE,
	"neq": OpNE,
}

// ParseOperator normalizes an operator spelling to its symbolic form.
func ParseOperator(s string) (Operator, error) {
	op, ok := operatorAliases[s]
	if !ok {
		return "", fmt.Errorf("unknown operator %q (use <, <=, >, >=, ==, != or gt, gte, lt, lte, eq, ne)", s)
	}
	return op, nil
}

// Compare applies the operator with plain IEEE float semantics. Boundary
// values are exact: 0.5 > 0.5 is false, 0.5 >= 0.5 is true. No epsilon.
func (o Operator) Compare(actual, threshold float64) bool {
	switch o {
	case OpLT:
		return actual < threshold
	case OpLE:
		return actual <= threshold
	case OpGT:
		return actual > threshold
	case OpGE:
		return actual >= threshold
	case OpEQ:
		return actual == threshold
	case OpNE:
		return actual != threshold
	default:
		return false
	}
}
