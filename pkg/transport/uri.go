package transport

import (
	"fmt"
	"strings"
)

// SplitURI splits "/rd/5a3f?lt=60&b=U" into its path and query parts.
// The path keeps its leading slash; query parameters keep their order and
// are not unescaped.
func SplitURI(uri string) (path string, queries []string, err error) {
	path, rawQuery, hasQuery := strings.Cut(uri, "?")
	if !strings.HasPrefix(path, "/") {
		return "", nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidURI, uri)
	}
	if hasQuery && rawQuery != "" {
		for _, q := range strings.Split(rawQuery, "&") {
			if q == "" {
				return "", nil, fmt.Errorf("%w: empty query parameter in %q", ErrInvalidURI, uri)
			}
			queries = append(queries, q)
		}
	}
	return path, queries, nil
}

// JoinPath joins Uri-Path or Location-Path segments into "/a/b".
func JoinPath(segments []string) string {
	return "/" + strings.Join(segments, "/")
}

// PathSegments splits "/rd/5a3f" into ["rd", "5a3f"]. The root yields none.
func PathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
