package strutil

import (
	"maps"
	"slices"
)

// NonEmptyOrNil returns s, or nil when s has no elements.
func NonEmptyOrNil[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// HasOne reports whether s has exactly one element.
func HasOne[T any](s []T) bool {
	return len(s) == 1
}

// SingleOrZero returns the only element of s, or the zero value if s doesn't
// have exactly one element.
func SingleOrZero[T any](s []T) T {
	var z T
	if !HasOne(s) {
		return z
	}
	return s[0]
}

// ToMap indexes list by key. Later elements win when two share a key.
func ToMap[K comparable, V any](key func(V) K, list []V) map[K]V {
	m := make(map[K]V, len(list))
	for _, v := range list {
		m[key(v)] = v
	}
	return m
}

// CloneSlice returns a copy of s. Empty input gives a nil slice.
func CloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// CloneMap returns a copy of m. Empty input gives a nil map.
func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
