package fspath

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type RootStyle uint8

const (
	RootRelative RootStyle = iota
	// Unix-style, starting at /
	RootPosix
	// Drive letter, like C:
	RootDos
)

func (r RootStyle) String() string {
	switch r {
	case RootPosix:
		return "posix"
	case RootDos:
		return "dos"
	default:
		return "relative"
	}
}

type adjustment struct {
	once   sync.Once
	result Path
}

// Path identifies a file by its root and its normalized components. Paths
// are immutable; operations return modified copies.
type Path struct {
	style      RootStyle
	root       string
	components []string

	// Shared between copies so the case adjustment only hits the disk once.
	adjusted *adjustment
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// New parses a path using either / or \ as separators. Relative paths stay
// relative; use Absolute to anchor them to the working directory.
func New(path string) Path {
	normalized := strings.ReplaceAll(path, "\\", "/")

	result := Path{
		adjusted: &adjustment{},
	}

	switch {
	case len(normalized) >= 2 && isDriveLetter(normalized[0]) && normalized[1] == ':':
		result.style = RootDos
		result.root = strings.ToUpper(normalized[:2])
		normalized = normalized[2:]
	case strings.HasPrefix(normalized, "/"):
		result.style = RootPosix
	default:
		result.style = RootRelative
	}

	result.components = appendComponents(nil, result.style, strings.Split(normalized, "/"))
	return result
}

// NewRelative parses path and, if it is relative, resolves it against base.
func NewRelative(path string, base Path) Path {
	parsed := New(path)
	if parsed.style != RootRelative {
		return parsed
	}

	components := make([]string, len(base.components), len(base.components)+len(parsed.components))
	copy(components, base.components)

	return Path{
		style:      base.style,
		root:       base.root,
		components: appendComponents(components, base.style, parsed.components),
		adjusted:   &adjustment{},
	}
}

func appendComponents(components []string, style RootStyle, parts []string) []string {
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			last := len(components) - 1
			if last >= 0 && components[last] != ".." {
				components = components[:last]
				continue
			}

			// Can't ascend above a filesystem root
			if style != RootRelative {
				continue
			}
		}

		components = append(components, part)
	}

	return components
}

func (p Path) derive(components []string) Path {
	return Path{
		style:      p.style,
		root:       p.root,
		components: components,
		adjusted:   &adjustment{},
	}
}

func (p Path) Style() RootStyle {
	return p.style
}

func (p Path) Root() string {
	return p.root
}

// Depth is the number of components below the root (or working directory).
func (p Path) Depth() int {
	return len(p.components)
}

func (p Path) Components() []string {
	components := make([]string, len(p.components))
	copy(components, p.components)
	return components
}

func (p Path) IsZero() bool {
	return p.style == RootRelative && len(p.components) == 0
}

// Dir returns the containing directory. It never ascends above the
// highest level given during construction.
func (p Path) Dir() Path {
	if len(p.components) == 0 {
		return p.derive(nil)
	}

	return p.derive(p.components[:len(p.components)-1])
}

func (p Path) prefix() string {
	separator := string(filepath.Separator)
	switch p.style {
	case RootPosix:
		return separator
	case RootDos:
		return p.root + separator
	default:
		return ""
	}
}

// String renders the path using the host's separator.
func (p Path) String() string {
	joined := strings.Join(p.components, string(filepath.Separator))
	if p.style == RootRelative && joined == "" {
		return "."
	}

	return p.prefix() + joined
}

func (p Path) StringNoExt() string {
	if len(p.components) == 0 {
		return p.String()
	}

	return p.WithoutExt().String()
}

// File returns just the last component.
func (p Path) File() string {
	if len(p.components) == 0 {
		return ""
	}

	return p.components[len(p.components)-1]
}

func splitExt(file string) (string, string) {
	dot := strings.LastIndex(file, ".")
	if dot <= 0 {
		return file, ""
	}

	return file[:dot], file[dot:]
}

func (p Path) FileNoExt() string {
	name, _ := splitExt(p.File())
	return name
}

// Ext returns the extension of the file including the dot, or an empty
// string if there is none.
func (p Path) Ext() string {
	_, ext := splitExt(p.File())
	return ext
}

func (p Path) WithoutExt() Path {
	return p.WithExt("")
}

// WithExt replaces the file's extension, or appends it if there is none.
func (p Path) WithExt(ext string) Path {
	if len(p.components) == 0 {
		return p
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	components := p.Components()
	name, _ := splitExt(components[len(components)-1])
	components[len(components)-1] = name + ext
	return p.derive(components)
}

// Join appends the components of a relative path.
func (p Path) Join(path string) Path {
	return NewRelative(path, p)
}

// RemovePrefix returns the part of this path below prefix as a relative
// path. If prefix does not lead this path (or the roots differ), an
// unchanged copy is returned.
func (p Path) RemovePrefix(prefix Path) Path {
	if p.style != prefix.style || p.root != prefix.root {
		return p
	}

	if len(prefix.components) > len(p.components) {
		return p
	}

	for i, component := range prefix.components {
		if p.components[i] != component {
			return p
		}
	}

	rest := make([]string, len(p.components)-len(prefix.components))
	copy(rest, p.components[len(prefix.components):])

	return Path{
		style:      RootRelative,
		components: rest,
		adjusted:   &adjustment{},
	}
}

// Absolute anchors a relative path to the current working directory.
func (p Path) Absolute() (Path, error) {
	if p.style != RootRelative {
		return p, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return Path{}, err
	}

	return NewRelative(strings.Join(p.components, "/"), New(wd)), nil
}

// Exists reports whether the path can be opened for reading. Any failure,
// including insufficient permissions, counts as nonexistence.
func (p Path) Exists() bool {
	file, err := os.Open(p.String())
	if err != nil {
		return false
	}
	file.Close()
	return true
}

func (p Path) baseDir() string {
	if p.style == RootRelative {
		return "."
	}

	return p.prefix()
}

func (p Path) adjustCase() Path {
	components := p.Components()
	current := p.baseDir()

	for i, component := range components {
		if component != ".." {
			entries, err := os.ReadDir(current)
			if err == nil {
				components[i] = matchEntry(entries, component)
			}
		}

		current = filepath.Join(current, components[i])
	}

	result := p.derive(components)

	// An adjusted path is its own adjustment.
	result.adjusted.once.Do(func() {
		result.adjusted.result = result
	})

	return result
}

func matchEntry(entries []os.DirEntry, component string) string {
	folded := ""
	for _, entry := range entries {
		name := entry.Name()
		if name == component {
			return name
		}

		if folded == "" && strings.EqualFold(name, component) {
			folded = name
		}
	}

	if folded != "" {
		return folded
	}

	return component
}

// AdjustCase replaces every component that matches an on-disk name when
// ignoring case with the name the filesystem reports. Components that are
// missing or inaccessible are kept as-is. The result is computed once per
// path and is idempotent.
func (p Path) AdjustCase() Path {
	if p.adjusted == nil {
		return p.adjustCase()
	}

	p.adjusted.once.Do(func() {
		p.adjusted.result = p.adjustCase()
	})

	return p.adjusted.result
}

// Equal compares root style, root and the normalized components.
func (p Path) Equal(other Path) bool {
	if p.style != other.style || p.root != other.root {
		return false
	}

	if len(p.components) != len(other.components) {
		return false
	}

	for i, component := range p.components {
		if other.components[i] != component {
			return false
		}
	}

	return true
}

// Key is a string that is equal for two paths iff Equal reports true.
func (p Path) Key() string {
	return p.style.String() + ":" + p.root + "/" + strings.Join(p.components, "/")
}
