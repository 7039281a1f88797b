// Package attrs implements set-valued attributes for typed graphs.
//
// Every node and edge of a typed graph carries an attribute dictionary
// mapping attribute names to *sets* of values. Attributes are sets, never
// scalars: scalar inputs are normalized to singleton sets on ingestion, so
// all attribute algebra (subset checks, union, intersection, difference)
// has a single code path. This set semantics is what defines attribute
// propagation through rewriting: merging nodes unions their attributes,
// intersecting graphs (pullbacks) intersects them, and a homomorphism is
// only valid if every attribute set maps into a superset at its image.
//
// Values are plain strings. JSON numbers and booleans are normalized to
// their canonical string forms on ingestion, which keeps round-trips
// order-independent and deterministic.
package attrs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	rerr "github.com/regraft/regraft/pkg/errors"
)

// Set is an unordered set of attribute values.
// The zero value (nil) behaves as the empty set for all read operations.
type Set map[string]struct{}

// NewSet builds a Set from the given values.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a value into the set.
func (s Set) Add(v string) { s[v] = struct{}{} }

// Contains reports whether v is a member of the set.
func (s Set) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of values in the set.
func (s Set) Len() int { return len(s) }

// Values returns the members of the set in sorted order.
func (s Set) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}

// Copy returns an independent copy of the set.
// The copy shares no storage with the original.
func (s Set) Copy() Set {
	out := make(Set, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Union returns a new set containing the members of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for v := range s {
		out[v] = struct{}{}
	}
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}

// Intersect returns a new set containing the members present in both sets.
func (s Set) Intersect(other Set) Set {
	out := Set{}
	for v := range s {
		if other.Contains(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// Diff returns a new set containing the members of s not present in other.
func (s Set) Diff(other Set) Set {
	out := Set{}
	for v := range s {
		if !other.Contains(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// SubsetOf reports whether every member of s is a member of other.
// The empty set is a subset of everything.
func (s Set) SubsetOf(other Set) bool {
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets contain exactly the same members.
func (s Set) Equal(other Set) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// MarshalJSON serializes the set as a sorted JSON array.
// Sorting makes output deterministic and round-trips order-independent.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON accepts either a JSON array or a single scalar.
// Scalars are normalized to singleton sets; numbers and booleans are
// normalized to their canonical string forms.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := normalizeValue(raw)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// =============================================================================
// Dict - Attribute Dictionaries
// =============================================================================

// Dict maps attribute names to value sets.
// The zero value (nil) behaves as the empty dictionary for reads.
type Dict map[string]Set

// Copy returns a deep copy of the dictionary.
// Value sets are copied independently, never aliased.
func (d Dict) Copy() Dict {
	if d == nil {
		return Dict{}
	}
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v.Copy()
	}
	return out
}

// Union returns a new dictionary with every attribute's values unioned.
func (d Dict) Union(other Dict) Dict {
	out := d.Copy()
	for k, v := range other {
		if existing, ok := out[k]; ok {
			out[k] = existing.Union(v)
		} else {
			out[k] = v.Copy()
		}
	}
	return out
}

// Intersect returns a new dictionary keeping only attributes present in
// both, with their value sets intersected. Attributes whose intersection
// is empty are dropped.
func (d Dict) Intersect(other Dict) Dict {
	out := Dict{}
	for k, v := range d {
		if ov, ok := other[k]; ok {
			common := v.Intersect(ov)
			if common.Len() > 0 {
				out[k] = common
			}
		}
	}
	return out
}

// Diff returns a new dictionary with other's values removed per attribute.
// Attributes left with no values are dropped.
func (d Dict) Diff(other Dict) Dict {
	out := Dict{}
	for k, v := range d {
		rest := v.Diff(other[k])
		if rest.Len() > 0 {
			out[k] = rest
		}
	}
	return out
}

// SubsetOf reports whether every attribute's value set in d is contained
// in the corresponding set of other.
func (d Dict) SubsetOf(other Dict) bool {
	for k, v := range d {
		if !v.SubsetOf(other[k]) {
			return false
		}
	}
	return true
}

// Equal reports whether both dictionaries carry exactly the same
// attributes with the same value sets. Empty value sets are ignored.
func (d Dict) Equal(other Dict) bool {
	return d.SubsetOf(other) && other.SubsetOf(d)
}

// Normalize converts a loosely typed attribute map (as decoded from JSON
// or assembled by callers) into a Dict. Scalars become singleton sets,
// arrays become sets, and existing Sets are copied. Attribute names are
// validated on the way in: underscore-prefixed names are reserved.
func Normalize(raw map[string]any) (Dict, error) {
	if raw == nil {
		return Dict{}, nil
	}
	out := make(Dict, len(raw))
	for k, v := range raw {
		if err := rerr.ValidateAttrName(k); err != nil {
			return nil, err
		}
		set, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = set
	}
	return out, nil
}

// normalizeValue converts a scalar, Set, or slice into a Set.
func normalizeValue(v any) (Set, error) {
	switch val := v.(type) {
	case nil:
		return Set{}, nil
	case Set:
		return val.Copy(), nil
	case string:
		return NewSet(val), nil
	case bool:
		return NewSet(strconv.FormatBool(val)), nil
	case int:
		return NewSet(strconv.Itoa(val)), nil
	case int64:
		return NewSet(strconv.FormatInt(val, 10)), nil
	case float64:
		return NewSet(formatFloat(val)), nil
	case []string:
		return NewSet(val...), nil
	case []any:
		out := make(Set, len(val))
		for _, elem := range val {
			single, err := normalizeValue(elem)
			if err != nil {
				return nil, err
			}
			for member := range single {
				out[member] = struct{}{}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", v)
	}
}

// formatFloat renders integral floats without a decimal point so that the
// JSON number 42 and the Go int 42 normalize identically.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
