// Package resolver maps request paths onto the content and static roots.
//
// Lookup order:
//   - an existing directory under the content root
//   - an existing file under the content root (Markdown when it ends in ".md")
//   - the same path with ".md" appended under the content root
//   - an existing file under the static root
package resolver

import (
	"os"
	"path/filepath"

	"zettel/internal/paths"
)

// MarkdownExt is the extension that marks a file as a Markdown document.
const MarkdownExt = ".md"

// Kind identifies what a request path resolved to.
type Kind int

const (
	NotFound Kind = iota
	RegularFile
	MarkdownDocument
	Directory
)

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case RegularFile:
		return "file"
	case MarkdownDocument:
		return "markdown"
	case Directory:
		return "directory"
	default:
		return "not-found"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Resolved is the outcome of a lookup. Path is empty for NotFound.
type Resolved struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"`
}

// Resolver holds the two roots. It is safe for concurrent use.
type Resolver struct {
	contentRoot string
	staticRoot  string
}

// New creates a resolver. Roots are made absolute so containment checks do not
// depend on the working directory at lookup time.
func New(contentRoot, staticRoot string) *Resolver {
	return &Resolver{
		contentRoot: absOrClean(contentRoot),
		staticRoot:  absOrClean(staticRoot),
	}
}

// ContentRoot returns the absolute content root.
func (r *Resolver) ContentRoot() string { return r.contentRoot }

// StaticRoot returns the absolute static root.
func (r *Resolver) StaticRoot() string { return r.staticRoot }

// Lookup resolves an absolute URI path. It never fails: anything that cannot
// be found, read or safely contained is NotFound.
func (r *Resolver) Lookup(uriPath string) Resolved {
	rel, ok := paths.CleanRelative(uriPath)
	if !ok {
		return Resolved{Kind: NotFound}
	}

	candidate := paths.Join(r.contentRoot, rel)
	if info, ok := r.stat(candidate, r.contentRoot); ok {
		if info.IsDir() {
			return Resolved{Kind: Directory, Path: candidate}
		}
		if info.Mode().IsRegular() {
			if filepath.Ext(candidate) == MarkdownExt {
				return Resolved{Kind: MarkdownDocument, Path: candidate}
			}
			return Resolved{Kind: RegularFile, Path: candidate}
		}
	}

	if rel != "" {
		md := candidate + MarkdownExt
		if info, ok := r.stat(md, r.contentRoot); ok && info.Mode().IsRegular() {
			return Resolved{Kind: MarkdownDocument, Path: md}
		}
	}

	static := paths.Join(r.staticRoot, rel)
	if info, ok := r.stat(static, r.staticRoot); ok && info.Mode().IsRegular() {
		return Resolved{Kind: RegularFile, Path: static}
	}

	return Resolved{Kind: NotFound}
}

// stat follows symlinks and refuses targets that leave root.
func (r *Resolver) stat(candidate, root string) (os.FileInfo, bool) {
	info, err := os.Stat(candidate)
	if err != nil {
		return nil, false
	}
	if !paths.IsWithin(candidate, root) {
		return nil, false
	}
	return info, true
}

func absOrClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
