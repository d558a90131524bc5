package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"schemasync/internal/core"
)

// node is an object in the decoded document together with its location,
// e.g. "schema.tables[2].columns[5]".
type node struct {
	m    map[string]any
	path string
}

func (n node) field(key string) string { return n.path + "." + key }

func (n node) has(key string) bool {
	v, ok := n.m[key]
	return ok && v != nil
}

func (n node) configErr(key, format string, args ...any) error {
	return &core.ConfigError{Path: n.field(key), Message: fmt.Sprintf(format, args...)}
}

func (n node) assertErr(key, format string, args ...any) error {
	return &core.AssertionError{Path: n.field(key), Message: fmt.Sprintf(format, args...)}
}

func (n node) requiredString(key string) (string, error) {
	s, ok := n.m[key].(string)
	if !ok || s == "" {
		return "", n.configErr(key, "a non-empty string is required")
	}
	return s, nil
}

func (n node) requiredIdentifier(key string, extra ...rune) (string, error) {
	s, err := n.requiredString(key)
	if err != nil {
		return "", err
	}
	if !core.ValidIdentifier(s, extra...) {
		return "", n.assertErr(key, "%q is not a valid identifier", s)
	}
	return s, nil
}

func (n node) optionalString(key string) (string, bool, error) {
	if !n.has(key) {
		return "", false, nil
	}
	s, ok := n.m[key].(string)
	if !ok {
		return "", false, n.assertErr(key, "must be a string, got %T", n.m[key])
	}
	return s, true, nil
}

func (n node) optionalIdentifier(key string, extra ...rune) (string, bool, error) {
	s, ok, err := n.optionalString(key)
	if err != nil || !ok {
		return "", false, err
	}
	if !core.ValidIdentifier(s, extra...) {
		return "", false, n.assertErr(key, "%q is not a valid identifier", s)
	}
	return s, true, nil
}

func (n node) optionalBool(key string) (bool, error) {
	if !n.has(key) {
		return false, nil
	}
	b, ok := n.m[key].(bool)
	if !ok {
		return false, n.assertErr(key, "must be a boolean, got %T", n.m[key])
	}
	return b, nil
}

func (n node) requiredInt(key string, min int) (int, error) {
	v, ok := asInt(n.m[key])
	if !ok || v < int64(min) || v > math.MaxInt32 {
		if min > 0 {
			return 0, n.configErr(key, "a positive integer is required")
		}
		return 0, n.configErr(key, "a non-negative integer is required")
	}
	return int(v), nil
}

func (n node) requiredList(key string) ([]any, error) {
	l, ok := n.m[key].([]any)
	if !ok || len(l) == 0 {
		return nil, n.configErr(key, "a non-empty list is required")
	}
	return l, nil
}

func (n node) optionalList(key string) ([]any, error) {
	if !n.has(key) {
		return nil, nil
	}
	l, ok := n.m[key].([]any)
	if !ok {
		return nil, n.assertErr(key, "must be a list, got %T", n.m[key])
	}
	return l, nil
}

// object returns element i of list (found under key) as a node.
func (n node) object(list []any, key string, i int) (node, error) {
	path := fmt.Sprintf("%s.%s[%d]", n.path, key, i)
	m, ok := list[i].(map[string]any)
	if !ok {
		return node{}, &core.ConfigError{Path: path, Message: "an object is required"}
	}
	return node{m: m, path: path}, nil
}

// identifierList reads a list of identifiers.
func (n node) identifierList(key string, list []any) ([]string, error) {
	out := make([]string, 0, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok || !core.ValidIdentifier(s) {
			return nil, &core.AssertionError{
				Path:    fmt.Sprintf("%s.%s[%d]", n.path, key, i),
				Message: fmt.Sprintf("%v is not a valid identifier", v),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// asInt accepts the integer representations of every supported decoder.
func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > 1<<53 {
			return 0, false
		}
		return int64(t), true
	default:
		return 0, false
	}
}

// asNumber returns the canonical decimal text of a numeric value or numeric string.
func asNumber(v any) (string, bool) {
	if i, ok := asInt(v); ok {
		return strconv.FormatInt(i, 10), true
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case string:
		s = strings.TrimSpace(t)
	default:
		return "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
