// Package dirtree builds directory trees and flat listings for the content
// root.
package dirtree

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// RootName is the display name of the tree's root node.
const RootName = "/"

// File is a leaf of the tree.
type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Directory is an interior node. Dirs and Files are each sorted by name.
// Path carries a trailing "/" for every directory below the root.
type Directory struct {
	Name  string      `json:"name"`
	Path  string      `json:"path"`
	Dirs  []Directory `json:"dirs"`
	Files []File      `json:"files"`
}

// PathMode selects how node paths are written.
type PathMode int

const (
	// RootRelative paths are relative to the walked root ("a/", "a/b.md").
	RootRelative PathMode = iota
	// RequestRelative paths are prefixed with the request path so they can be
	// used as links ("/notes/a/", "/notes/a/b.md").
	RequestRelative
)

// FlatEntry is one item of the depth-first walk, in the order the walk
// produced it. Rel is slash-separated and relative to the root; the root itself
// has Rel "".
type FlatEntry struct {
	Rel   string
	Name  string
	IsDir bool
}

// Build walks root and rebuilds its hierarchy. The root must be a directory.
// Any walk error aborts the build; no partial tree is returned. Symlinks and
// other non-regular files are left out.
func Build(root string, mode PathMode, base string) (*Directory, error) {
	entries, err := Walk(root)
	if err != nil {
		return nil, err
	}
	return Assemble(entries, prefixFor(mode, base))
}

// Walk produces the flat, depth-first sequence Assemble consumes. A symlinked
// root is followed; links below the root are not.
func Walk(root string) ([]FlatEntry, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	root = resolved

	var entries []FlatEntry
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			if !d.IsDir() {
				return fmt.Errorf("tree root %s is not a directory", root)
			}
			rel = ""
		}

		switch {
		case d.IsDir():
			entries = append(entries, FlatEntry{Rel: rel, Name: d.Name(), IsDir: true})
		case d.Type().IsRegular():
			entries = append(entries, FlatEntry{Rel: rel, Name: d.Name()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// frame is an open directory: the node being filled and its root-relative
// path, used for the containment test.
type frame struct {
	dir Directory
	rel string
}

// Assemble folds a depth-first sequence into a tree using an explicit stack
// of open ancestors. The first entry must be the root directory.
func Assemble(entries []FlatEntry, prefix string) (*Directory, error) {
	if len(entries) == 0 || !entries[0].IsDir || entries[0].Rel != "" {
		return nil, fmt.Errorf("walk did not start at a root directory")
	}

	cur := frame{dir: newDirectory(RootName, prefix), rel: ""}
	var stack []frame

	for _, e := range entries[1:] {
		for !under(e.Rel, cur.rel) {
			if len(stack) == 0 {
				return nil, fmt.Errorf("entry %q is outside the walked root", e.Rel)
			}
			parent := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent.dir.Dirs = append(parent.dir.Dirs, cur.dir)
			cur = parent
		}

		if e.IsDir {
			stack = append(stack, cur)
			cur = frame{dir: newDirectory(e.Name, prefix+e.Rel+"/"), rel: e.Rel}
			continue
		}
		cur.dir.Files = append(cur.dir.Files, File{Name: e.Name, Path: prefix + e.Rel})
	}

	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent.dir.Dirs = append(parent.dir.Dirs, cur.dir)
		cur = parent
	}

	sortTree(&cur.dir)
	return &cur.dir, nil
}

// under reports whether rel lies inside the directory dir, by whole segments.
func under(rel, dir string) bool {
	if dir == "" {
		return true
	}
	return strings.HasPrefix(rel, dir+"/")
}

func newDirectory(name, path string) Directory {
	return Directory{
		Name:  name,
		Path:  path,
		Dirs:  []Directory{},
		Files: []File{},
	}
}

func prefixFor(mode PathMode, base string) string {
	if mode != RequestRelative {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func sortTree(d *Directory) {
	sort.Slice(d.Dirs, func(i, j int) bool { return d.Dirs[i].Name < d.Dirs[j].Name })
	sort.Slice(d.Files, func(i, j int) bool { return d.Files[i].Name < d.Files[j].Name })
	for i := range d.Dirs {
		sortTree(&d.Dirs[i])
	}
}

// Count returns the number of directories and files below d.
func (d *Directory) Count() (dirs, files int) {
	files = len(d.Files)
	for i := range d.Dirs {
		dd, ff := d.Dirs[i].Count()
		dirs += dd + 1
		files += ff
	}
	return dirs, files
}
