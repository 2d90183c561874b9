package scanner

import (
	"path"
	"strings"
)

// Pattern is one gitignore-style line.
type Pattern struct {
	Negate   bool // leading "!"
	DirOnly  bool // trailing "/"
	Anchored bool // contains a "/" other than a trailing one
	segments []string
}

// ParsePattern parses a single ignore line.
func ParsePattern(line string) Pattern {
	var p Pattern
	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.DirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.Contains(line, "/") {
		p.Anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	p.segments = strings.Split(line, "/")
	return p
}

// Match reports whether rel, a slash separated path relative to the
// directory that declared the pattern, is matched.
func (p Pattern) Match(rel string, isDir bool) bool {
	if p.DirOnly && !isDir {
		return false
	}
	parts := strings.Split(rel, "/")
	if p.Anchored {
		return matchSegments(p.segments, parts)
	}
	// unanchored patterns match the final component only
	return matchSegments(p.segments, parts[len(parts)-1:])
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}
