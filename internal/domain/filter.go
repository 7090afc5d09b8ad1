package domain

import (
	"fmt"
	"sort"
)

// FilterOp enumerates the closed set of supported filter operators.
type FilterOp string

const (
	OpEquals   FilterOp = "eq"
	OpContains FilterOp = "contains"
	OpInSet    FilterOp = "in"
	OpBetween  FilterOp = "between"
	OpGTE      FilterOp = "gte"
	OpLTE      FilterOp = "lte"
)

// Filter is one predicate on a whitelisted entity field. Exactly one of the
// value slots is used depending on the operator: Value for eq/contains/gte/lte,
// Values for in, Lo/Hi for between.
type Filter struct {
	Field  string   `json:"field"`
	Op     FilterOp `json:"op"`
	Value  any      `json:"value,omitempty"`
	Values []any    `json:"values,omitempty"`
	Lo     any      `json:"lo,omitempty"`
	Hi     any      `json:"hi,omitempty"`
}

// Sort describes the requested ordering of a list query.
type Sort struct {
	Field string
	Desc  bool
}

// Pagination bounds. Repositories and cache keys share them so that one
// logical page never maps to two cache keys.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page describes pagination. Page is 1-based.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps pagination to the shared bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// ValidateFilters checks every filter against the allowed field set and the
// operator/value shape rules. It fails fast with ErrValidation so an invalid
// predicate can never silently build a no-op query.
func ValidateFilters(filters []Filter, allowedFields map[string]bool) error {
	for _, f := range filters {
		if !allowedFields[f.Field] {
			return fmt.Errorf("%w: unknown filter field %q", ErrValidation, f.Field)
		}
		switch f.Op {
		case OpEquals, OpContains, OpGTE, OpLTE:
			if f.Value == nil {
				return fmt.Errorf("%w: operator %q on %q requires a value", ErrValidation, f.Op, f.Field)
			}
		case OpInSet:
			if len(f.Values) == 0 {
				return fmt.Errorf("%w: operator %q on %q requires a non-empty value set", ErrValidation, f.Op, f.Field)
			}
		case OpBetween:
			if f.Lo == nil || f.Hi == nil {
				return fmt.Errorf("%w: operator %q on %q requires both bounds", ErrValidation, f.Op, f.Field)
			}
		default:
			return fmt.Errorf("%w: unsupported filter operator %q", ErrValidation, f.Op)
		}
	}
	return nil
}

// CanonicalFilters returns a copy of filters in a stable order (field, then
// operator) so that logically identical filter sets serialize identically
// regardless of the order the caller assembled them in.
func CanonicalFilters(filters []Filter) []Filter {
	out := make([]Filter, len(filters))
	copy(out, filters)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Op < out[j].Op
	})
	return out
}
