// Package jsonwalk provides shape-tolerant traversal of decoded JSON.
//
// Upstream registries return the same data under different keys and nesting
// depths depending on API version. Rather than modelling every variant with
// structs, callers decode into any (map[string]any / []any / scalars) and
// probe the result with the helpers here.
package jsonwalk

import (
	"strconv"
	"strings"
)

// FindFirst walks v depth-first and returns the first scalar value whose key
// satisfies pred. Only string and numeric scalars are returned; objects and
// arrays under a matching key are descended into instead.
//
// Sibling keys of a JSON object carry no ordering once decoded into a Go
// map, so fixtures and predicates should be written so that at most one
// sibling matches.
func FindFirst(v any, pred func(key string) bool) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if pred(strings.ToLower(k)) {
				if s, ok := scalarString(val); ok {
					return s, true
				}
			}
			if s, ok := FindFirst(val, pred); ok {
				return s, true
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := FindFirst(item, pred); ok {
				return s, true
			}
		}
	}
	return "", false
}

// KeyContains returns a predicate matching keys that contain any of the
// given substrings, case-insensitively. FindFirst lowercases keys before
// calling the predicate, so substrings must be lowercase.
func KeyContains(substrings ...string) func(key string) bool {
	return func(key string) bool {
		for _, sub := range substrings {
			if strings.Contains(key, sub) {
				return true
			}
		}
		return false
	}
}

// At follows a path of string (object key) and int (array index) segments
// and returns the scalar at the end. Any type mismatch, missing key or
// out-of-range index along the way yields ("", false).
func At(v any, path ...any) (string, bool) {
	cur := v
	for _, seg := range path {
		switch s := seg.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur, ok = obj[s]
			if !ok {
				return "", false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || s < 0 || s >= len(arr) {
				return "", false
			}
			cur = arr[s]
		default:
			return "", false
		}
	}
	return scalarString(cur)
}

// scalarString converts a decoded JSON scalar to its trimmed string form.
// Empty strings, nulls and containers report false.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		trimmed := strings.TrimSpace(s)
		return trimmed, trimmed != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}
