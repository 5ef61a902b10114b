package dirtree

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// EntryKind tags a listing entry.
type EntryKind string

const (
	KindDirectory EntryKind = "directory"
	KindFile      EntryKind = "file"
	KindSymlink   EntryKind = "symlink"
	KindOther     EntryKind = "other"
)

func (k EntryKind) rank() int {
	switch k {
	case KindDirectory:
		return 0
	case KindFile:
		return 1
	case KindSymlink:
		return 2
	default:
		return 3
	}
}

// Entry is one item of a single-level directory listing.
type Entry struct {
	Kind EntryKind `json:"type"`
	Path string    `json:"path"`
}

// Name returns the last path segment without the directory slash.
func (e Entry) Name() string {
	p := strings.TrimSuffix(e.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ReadEntries lists dir one level deep. Each path is base followed by the
// entry name; directories get a trailing "/". Entries are sorted by kind
// (directories, files, symlinks, other) and then by path.
func ReadEntries(dir, base string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		kind := kindOf(de.Type())
		p := base + de.Name()
		if kind == KindDirectory {
			p += "/"
		}
		entries = append(entries, Entry{Kind: kind, Path: p})
	}

	sort.Slice(entries, func(i, j int) bool {
		ri, rj := entries[i].Kind.rank(), entries[j].Kind.rank()
		if ri != rj {
			return ri < rj
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

func kindOf(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsDir():
		return KindDirectory
	case mode.IsRegular():
		return KindFile
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}
