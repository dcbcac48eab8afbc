// Package tree addresses nodes of the hierarchical store and walks decoded subtrees.
package tree

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const Separator = "/"

// forbidden символы нельзя использовать в ключах хранилища
var forbidden = strings.NewReplacer(
	".", "_",
	"#", "_",
	"$", "_",
	"/", "_",
	"[", "_",
	"]", "_",
)

// SanitizeKey приводит произвольную строку к допустимому ключу узла.
// Полноширинные символы сворачиваются, строка нормализуется в NFC.
// Повторный вызов результат не меняет.
func SanitizeKey(key string) string {
	key = width.Fold.String(key)
	key = norm.NFC.String(key)
	key = strings.TrimSpace(key)
	return forbidden.Replace(key)
}

// Path is a sequence of already sanitised segments.
type Path []string

// NewPath sanitises every segment and drops empty ones.
func NewPath(segments ...string) Path {
	p := make(Path, 0, len(segments))
	for _, s := range segments {
		s = SanitizeKey(s)
		if s == "" {
			continue
		}
		p = append(p, s)
	}
	return p
}

// Parse splits a slash-joined path. Segments are taken as-is.
func Parse(s string) Path {
	if s == "" {
		return Path{}
	}
	parts := strings.Split(strings.Trim(s, Separator), Separator)
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		p = append(p, part)
	}
	return p
}

func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Child returns a new path with the sanitised segments appended.
func (p Path) Child(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, NewPath(segments...)...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Last returns the last segment or "".
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// HasPrefix reports whether prefix is an ancestor of p or equal to it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether a change at one path affects a view of the other.
func Overlaps(a, b Path) bool {
	return a.HasPrefix(b) || b.HasPrefix(a)
}

// Valid is false for an empty path or any segment containing forbidden characters.
func (p Path) Valid() bool {
	if len(p) == 0 {
		return false
	}
	for _, s := range p {
		if s == "" || s != forbidden.Replace(s) {
			return false
		}
	}
	return true
}
