package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind distinguishes map keys from list indices in a mount path.
type SegmentKind uint8

const (
	KeySegment SegmentKind = iota
	IndexSegment
)

// Segment is one step of a mount path.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

func (s Segment) String() string {
	if s.Kind == IndexSegment {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path locates a sub-tree of the merged settings. The zero Path is the root.
type Path []Segment

// ParseMountPath parses a dot-separated mount path. A segment written as [N]
// indexes a list; any other segment names a map key. The empty string is the
// root of the tree.
func ParseMountPath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, nil
	}
	parts := strings.Split(raw, ".")
	path := make(Path, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w %q: empty segment at position %d", ErrInvalidMountPath, raw, i)
		}
		if !strings.HasPrefix(part, "[") && !strings.HasSuffix(part, "]") {
			path = append(path, Segment{Kind: KeySegment, Key: part})
			continue
		}
		index, err := parseIndex(part)
		if err != nil {
			return nil, fmt.Errorf("%w %q: segment %q: %w", ErrInvalidMountPath, raw, part, err)
		}
		path = append(path, Segment{Kind: IndexSegment, Index: index})
	}
	return path, nil
}

func parseIndex(part string) (int, error) {
	if len(part) < 3 || part[0] != '[' || part[len(part)-1] != ']' {
		return 0, fmt.Errorf("index must be written as [N]")
	}
	digits := part[1 : len(part)-1]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("index must be a non-negative integer")
		}
	}
	return strconv.Atoi(digits)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Lookup walks the tree along p. A missing key or index, or a scalar in the
// middle of the path, resolves to an empty map and the walk continues from
// there, so Lookup never fails.
func (p Path) Lookup(root Value) Value {
	current := root
	for _, seg := range p {
		var (
			next Value
			ok   bool
		)
		switch seg.Kind {
		case IndexSegment:
			next, ok = current.Index(seg.Index)
		default:
			next, ok = current.Field(seg.Key)
		}
		if !ok {
			next = EmptyMap()
		}
		current = next
	}
	return current
}
