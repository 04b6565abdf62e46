package extraction

import (
	"strconv"
	"strings"
)

// PathExpression descends a dotted/indexed path through the nested values the
// OCR service produces. Segments are object keys or array indexes; both
// "items[2].name" and "items.2.name" address the same value. An absent
// segment yields Missing rather than an error: a field the document simply
// does not carry is not a failure.
type PathExpression struct {
	segments []string
}

// ParsePath splits a source field path into segments. An empty path is valid
// and resolves to the value itself.
func ParsePath(path string) PathExpression {
	path = strings.TrimSpace(path)
	if path == "" {
		return PathExpression{}
	}
	// normalize bracket indexes to dotted segments
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	parts := strings.Split(path, ".")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return PathExpression{segments: segments}
}

func (p PathExpression) String() string { return strings.Join(p.segments, ".") }

// Resolve walks the path starting at root. The second return reports whether
// the full path was present; false means Missing, never a type error.
func (p PathExpression) Resolve(root interface{}) (interface{}, bool) {
	cur := root
	for _, seg := range p.segments {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			// scalar with segments left over: the path overshoots
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}
