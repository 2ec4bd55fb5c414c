package definitions

import (
	"strings"
)

// Path is a dotted element path such as "Patient.contact.name".
// A Path is immutable; every operation returning a Path returns a copy.
type Path struct {
	segments []string
}

// ParsePath splits a dotted string into a Path. The empty string yields the
// empty path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path{segments: strings.Split(s, ".")}
}

// NewPath builds a Path from individual segments.
func NewPath(segments ...string) Path {
	if len(segments) == 0 {
		return Path{}
	}
	return Path{segments: append([]string(nil), segments...)}
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// At returns the segment at index i. Negative indexes count from the end.
func (p Path) At(i int) string {
	if i < 0 {
		i += len(p.segments)
	}
	return p.segments[i]
}

// Last returns the final segment, or "" for the empty path.
func (p Path) Last() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Slice returns the sub-path [i, j).
func (p Path) Slice(i, j int) Path {
	return NewPath(p.segments[i:j]...)
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Append returns a new path with segment added at the end.
func (p Path) Append(segment string) Path {
	out := make([]string, len(p.segments), len(p.segments)+1)
	copy(out, p.segments)
	return Path{segments: append(out, segment)}
}

// String returns the dotted form.
func (p Path) String() string {
	return strings.Join(p.segments, ".")
}

// Equal reports whether both paths have the same dotted form.
func (p Path) Equal(other Path) bool {
	return p.String() == other.String()
}

// IsDescendantOf reports whether p lies strictly below ancestor: p is longer
// and starts with every segment of ancestor.
func (p Path) IsDescendantOf(ancestor Path) bool {
	return len(p.segments) > len(ancestor.segments) && p.hasPrefix(ancestor)
}

// IsWithin is the non-strict form of IsDescendantOf: it also holds when both
// paths are equal.
func (p Path) IsWithin(ancestor Path) bool {
	return len(p.segments) >= len(ancestor.segments) && p.hasPrefix(ancestor)
}

// Depth returns how many segments p extends beyond ancestor, or -1 when p is
// not within ancestor.
func (p Path) Depth(ancestor Path) int {
	if !p.IsWithin(ancestor) {
		return -1
	}
	return len(p.segments) - len(ancestor.segments)
}

func (p Path) hasPrefix(prefix Path) bool {
	for i, s := range prefix.segments {
		if p.segments[i] != s {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so element paths are
// parsed once while a record is decoded.
func (p *Path) UnmarshalText(text []byte) error {
	*p = ParsePath(string(text))
	return nil
}
