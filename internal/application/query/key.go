package query

import "strings"

// Key identifies a cached resource, e.g. {"projects", "42"}.
type Key []string

// HasPrefix reports whether k starts with every segment of prefix. Segments
// match whole: {"projects"} is a prefix of {"projects", "42"} but {"proj"}
// is not. The empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// id is the map form of the key; the separator cannot appear in ids.
func (k Key) id() string {
	return strings.Join(k, "\x1f")
}
