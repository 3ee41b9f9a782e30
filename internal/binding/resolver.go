// Package binding resolves the three-tier chain functional role → semantic
// variable → physical column for metric execution.
package binding

import (
	"fmt"
	"strings"
)

// ColumnSet is the dataset surface the resolver needs: column membership.
type ColumnSet interface {
	HasColumn(name string) bool
}

// ResolutionError reports a required role that could not be mapped to any
// column or series. Fatal in strict mode; degrades to a SKIPPED result in
// lenient mode.
type ResolutionError struct {
	Role     string
	Variable string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("role %q (variable %q) is not bound to any column", e.Role, e.Variable)
}

// Binding is one resolved chain.
type Binding struct {
	Role     string
	Variable string
	Column   string
}

// String renders the audit narration line for a successful binding.
func (b Binding) String() string {
	return fmt.Sprintf("Virtual Role '%s' bound to Variable '%s' (Column: '%s')", b.Role, b.Variable, b.Column)
}

// Resolver maps roles to physical columns using caller bindings first, then
// direct column match, then the synonym table. The table is read-only after
// construction.
type Resolver struct {
	synonyms map[string][]string
}

// NewResolver builds a resolver over a synonym table. A nil table means
// DefaultSynonyms.
func NewResolver(synonyms map[string][]string) *Resolver {
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}
	return &Resolver{synonyms: synonyms}
}

// Resolve maps one role to a physical column.
//
// The semantic variable is inputBindings[role] when the policy names one,
// otherwise the role name itself. The column is then, in precedence order:
// the caller binding for the variable, the variable as a direct dataset
// column, the first synonym of the variable present in the dataset, the
// first synonym of the role present in the dataset. When none match, a
// *ResolutionError is returned.
func (r *Resolver) Resolve(role string, inputBindings, caller map[string]string, cols ColumnSet) (Binding, error) {
	variable, ok := inputBindings[role]
	if !ok || variable == "" {
		variable = role
	}

	if col, ok := caller[variable]; ok && col != "" {
		return Binding{Role: role, Variable: variable, Column: col}, nil
	}
	if cols.HasColumn(variable) {
		return Binding{Role: role, Variable: variable, Column: variable}, nil
	}
	for _, cand := range r.synonyms[variable] {
		if cols.HasColumn(cand) {
			return Binding{Role: role, Variable: variable, Column: cand}, nil
		}
	}
	if role != variable {
		for _, cand := range r.synonyms[role] {
			if cols.HasColumn(cand) {
				return Binding{Role: role, Variable: variable, Column: cand}, nil
			}
		}
	}
	return Binding{}, &ResolutionError{Role: role, Variable: variable}
}

// Discover resolves a bare variable name outside any control context, used
// by the orchestrator to locate target/prediction columns up front. Returns
// the column name and true on success.
func (r *Resolver) Discover(variable string, cols ColumnSet) (string, bool) {
	if cols.HasColumn(variable) {
		return variable, true
	}
	for _, cand := range r.synonyms[variable] {
		if cols.HasColumn(cand) {
			return cand, true
		}
	}
	if lower := strings.ToLower(variable); lower != variable && cols.HasColumn(lower) {
		return lower, true
	}
	return "", false
}

// ResolveList resolves a comma-separated or pre-split list of column-ish
// names (quasi-identifiers, sensitive columns) against the dataset, applying
// the same synonym discovery per item. Items that resolve nowhere are kept
// verbatim so the metric function can report them as missing.
func (r *Resolver) ResolveList(val string, cols ColumnSet) []string {
	var resolved []string
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if col, ok := r.Discover(item, cols); ok {
			resolved = append(resolved, col)
			continue
		}
		resolved = append(resolved, item)
	}
	return resolved
}
