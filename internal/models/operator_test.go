package models

import "testing"

func TestParseOperator(t *testing.T) {
	tests := []struct {
		input    string
		expected Operator
	}{
		{"<", OpLT},
		{"lt", OpLT},
		{"<=", OpLE},
		{"lte", OpLE},
		{"le", OpLE},
		{">", OpGT},
		{"gt", OpGT},
		{">=", OpGE},
		{"gte", OpGE},
		{"ge", OpGE},
		{"==", OpEQ},
		{"eq", OpEQ},
		{"!=", OpNE},
		{"ne", OpNE},
		{"neq", OpNE},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOperator(tt.input)
			if err != nil {
				t.Fatalf("ParseOperator(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseOperator(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseOperator_Unknown(t *testing.T) {
	for _, bad := range []string{"", "=>", "less_than", "GT"} {
		if _, err := ParseOperator(bad); err == nil {
			t.Errorf("ParseOperator(%q) expected error, got nil", bad)
		}
	}
}

func TestOperator_CompareBoundaries(t *testing.T) {
	tests := []struct {
		op        Operator
		actual    float64
		threshold float64
		expected  bool
	}{
		// Exact boundary: strict inequality fails, inclusive holds.
		{OpGT, 0.5, 0.5, false},
		{OpGE, 0.5, 0.5, true},
		{OpLT, 0.5, 0.5, false},
		{OpLE, 0.5, 0.5, true},
		{OpEQ, 0.5, 0.5, true},
		{OpNE, 0.5, 0.5, false},

		{OpGT, 0.8001, 0.8, true},
		{OpLT, 0.0999, 0.1, true},
		{OpGE, 0.79, 0.8, false},
		{OpLE, 0.11, 0.1, false},
		{OpEQ, 1.0, 0.999, false},
		{OpNE, 1.0, 0.999, true},
	}

	for _, tt := range tests {
		got := tt.op.Compare(tt.actual, tt.threshold)
		if got != tt.expected {
			t.Errorf("(%v %s %v) = %v, want %v", tt.actual, tt.op, tt.threshold, got, tt.expected)
		}
	}
}

func TestOperator_CompareUnknownOperator(t *testing.T) {
	if Operator("~=").Compare(1, 1) {
		t.Error("unknown operator must never pass")
	}
}
