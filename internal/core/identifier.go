package core

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// MaxIdentifierLength is the longest identifier emitted for any dialect.
// MySQL caps names at 64 characters and PostgreSQL at 63.
const MaxIdentifierLength = 63

// ValidIdentifier reports whether s is non-empty and made of ASCII letters, digits,
// underscores and any of the extra runes given.
func ValidIdentifier(s string, extra ...rune) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			ok := false
			for _, e := range extra {
				if r == e {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
	}
	return true
}

// ShortenIdentifier returns name unchanged when it fits in max characters and
// otherwise truncates it and appends an FNV-1a hash of the full name, so distinct
// long names stay distinct.
func ShortenIdentifier(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	keep := max - len(suffix)
	if keep < 1 {
		return suffix[1:]
	}
	return name[:keep] + suffix
}

// CamelCase converts snake_case and dotted names to CamelCase code names.
func CamelCase(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '.' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
