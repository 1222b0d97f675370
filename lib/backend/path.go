package backend

import (
	"fmt"
	"path"
	"strings"
)

// CleanPath validates p and returns it in canonical form: no leading or
// trailing slash, no empty, "." or ".." segments.
func CleanPath(p string) (string, error) {
	trimmed := strings.Trim(strings.ReplaceAll(p, `\`, "/"), "/")
	if trimmed == "" {
		return "", fmt.Errorf("invalid path %q: empty", p)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		switch seg {
		case "", ".", "..":
			return "", fmt.Errorf("invalid path %q: bad segment %q", p, seg)
		}
	}
	return trimmed, nil
}

// Join joins path segments with "/".
func Join(elem ...string) string {
	return path.Join(elem...)
}

// Parents returns every ancestor directory of p, outermost first.
func Parents(p string) []string {
	var parents []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			parents = append(parents, p[:i])
		}
	}
	return parents
}

// ChildName returns the first path segment of full below dir, or "" if full
// does not lie below dir.
func ChildName(dir, full string) string {
	prefix := dir + "/"
	if !strings.HasPrefix(full, prefix) {
		return ""
	}
	rest := full[len(prefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}
