package version

import (
	"fmt"
	"strings"
)

// ParseRange parses the grammar `expr := term ("," term)*`, `term := op?
// version`, `op ∈ {>=, >, <=, <, =, ==, ^}`. A bare version means "==". An
// empty expression is Full. Grounded on
// original_source/src/PackageDatabase.h's parse_operator/version_range.
func ParseRange(expr string) (Range, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Full(), nil
	}
	out := Full()
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		op, rest := splitOperator(term)
		v, err := Parse(rest)
		if err != nil {
			return Range{}, err
		}
		var part Range
		switch op {
		case ">=":
			part = HigherThan(v)
		case ">":
			part = StrictlyHigherThan(v)
		case "<=":
			part = LowerThan(v)
		case "<":
			part = StrictlyLowerThan(v)
		case "==":
			part = Singleton(v)
		case "^":
			part = CompatibleWith(v)
		default:
			return Range{}, fmt.Errorf("unknown_operator: %q", op)
		}
		out = out.Intersection(part)
	}
	return out, nil
}

// splitOperator peels a recognized comparator prefix off s, defaulting to
// "==" for a bare version literal.
func splitOperator(s string) (op, rest string) {
	switch {
	case strings.HasPrefix(s, ">="):
		return ">=", strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return ">", strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<="):
		return "<=", strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<"):
		return "<", strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "=="):
		return "==", strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "="):
		return "==", strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "^"):
		return "^", strings.TrimSpace(s[1:])
	default:
		return "==", s
	}
}
