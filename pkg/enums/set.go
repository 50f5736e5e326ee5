package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the closed value list behind one string enum.
type set[T ~string] struct {
	label  string
	values []T
}

func newSet[T ~string](label string, values ...T) set[T] {
	return set[T]{label: label, values: values}
}

func (s set[T]) has(v T) bool { return slices.Contains(s.values, v) }

// parse matches case-insensitively after trimming; the stored form is always lower case.
func (s set[T]) parse(raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", s.label, raw)
}
