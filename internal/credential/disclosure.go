package credential

import (
	"strings"

	"idwallet/internal/domain"
)

// extractFields resolves dot-paths against a subject tree and rebuilds a
// nested object holding only the resolved values, preserving the original
// path shape. Paths with a missing segment are skipped silently; the
// returned tree is always a strict subset of the source and the source is
// never mutated.
func extractFields(subject domain.Subject, paths []string) domain.Subject {
	out := domain.Subject{}
	for _, path := range paths {
		segments := strings.Split(path, ".")
		value, ok := resolvePath(subject, segments)
		if !ok {
			continue
		}
		insertPath(out, segments, value)
	}
	return out
}

func resolvePath(node any, segments []string) (any, bool) {
	current := node
	for _, seg := range segments {
		var child any
		switch t := current.(type) {
		case domain.Subject:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			child = v
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			child = v
		default:
			return nil, false
		}
		current = child
	}
	return cloneLeaf(current), true
}

func insertPath(root domain.Subject, segments []string, value any) {
	node := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(domain.Subject)
		if !ok {
			child = domain.Subject{}
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

// cloneLeaf deep-copies resolved values so disclosures never alias the
// stored credential's tree.
func cloneLeaf(v any) any {
	switch t := v.(type) {
	case domain.Subject:
		return t.Clone()
	case map[string]any:
		return map[string]any(domain.Subject(t).Clone())
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneLeaf(e)
		}
		return cp
	default:
		return v
	}
}
