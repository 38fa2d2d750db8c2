package types

import "strings"

// Root is the path of a workspace root node.
const Root Path = "/"

// Path is an absolute, slash separated node path. Paths are normalised by
// NewPath; a Path built by hand must not carry a trailing slash.
type Path string

// NewPath cleans p into an absolute path without empty segments.
func NewPath(p string) Path {
	segs := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(segs) == 0 {
		return Root
	}
	return Path("/" + strings.Join(segs, "/"))
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool { return p == Root || p == "" }

// Child returns the path of the child called name.
func (p Path) Child(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

// Parent returns the parent path. The parent of the root is the root.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	return string(p[strings.LastIndexByte(string(p), '/')+1:])
}

// Depth returns the number of segments below the root.
func (p Path) Depth() int {
	if p.IsRoot() {
		return 0
	}
	return strings.Count(string(p), "/")
}

// IsAtOrBelow reports whether p equals ancestor or lies beneath it.
func (p Path) IsAtOrBelow(ancestor Path) bool {
	if ancestor.IsRoot() {
		return true
	}
	if p == ancestor {
		return true
	}
	return strings.HasPrefix(string(p), string(ancestor)+"/")
}

func (p Path) String() string {
	if p == "" {
		return string(Root)
	}
	return string(p)
}
