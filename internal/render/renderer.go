// Package render turns Markdown documents and directory listings into HTML
// pages using a hot-reloadable html/template set.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"strings"

	"zettel/internal/dirtree"
)

// Page is the data every template receives.
type Page struct {
	Title   string
	Meta    map[string]any
	Content template.HTML
	// Path is the request path of the page.
	Path    string
	Listing []dirtree.Entry
	Tree    *dirtree.Directory
	Partial bool
}

// MarkdownContext is the input for RenderMarkdown.
type MarkdownContext struct {
	Path    string
	Source  []byte
	Listing []dirtree.Entry
	Tree    *dirtree.Directory
	Partial bool
}

// DirectoryContext is the input for RenderDirectory.
type DirectoryContext struct {
	Path    string
	Listing []dirtree.Entry
	Tree    *dirtree.Directory
	Partial bool
}

// Renderer executes pages against a TemplateStore.
type Renderer struct {
	store *TemplateStore
}

// NewRenderer creates a renderer backed by store.
func NewRenderer(store *TemplateStore) *Renderer {
	return &Renderer{store: store}
}

// Store returns the backing template store.
func (r *Renderer) Store() *TemplateStore { return r.store }

// RenderMarkdown renders a Markdown document inside the markdown template,
// or the partial fragment when ctx.Partial is set.
func (r *Renderer) RenderMarkdown(ctx MarkdownContext) ([]byte, error) {
	meta, body, err := SplitFrontMatter(ctx.Source)
	if err != nil {
		return nil, err
	}
	page := Page{
		Title:   markdownTitle(meta, body, ctx.Path),
		Meta:    meta,
		Content: MarkdownToHTML(body),
		Path:    ctx.Path,
		Listing: ctx.Listing,
		Tree:    ctx.Tree,
		Partial: ctx.Partial,
	}
	name := MarkdownTemplate
	if ctx.Partial {
		name = MarkdownPartialTemplate
	}
	return r.execute(name, page)
}

// RenderDirectory renders a directory listing page.
func (r *Renderer) RenderDirectory(ctx DirectoryContext) ([]byte, error) {
	page := Page{
		Title:   directoryTitle(ctx.Path),
		Path:    ctx.Path,
		Listing: ctx.Listing,
		Tree:    ctx.Tree,
		Partial: ctx.Partial,
	}
	name := DirectoryTemplate
	if ctx.Partial {
		name = DirectoryPartialTemplate
	}
	return r.execute(name, page)
}

func (r *Renderer) execute(name string, page Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.store.Execute(&buf, name, page); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// markdownTitle prefers front matter, then the first heading, then the file
// name without extension.
func markdownTitle(meta map[string]any, body []byte, reqPath string) string {
	if t, ok := meta["title"].(string); ok && t != "" {
		return t
	}
	if h := FirstHeading(body); h != "" {
		return h
	}
	base := path.Base(reqPath)
	if base == "/" || base == "." {
		return RootTitle
	}
	return strings.TrimSuffix(base, ".md")
}

// RootTitle is the title of the content root.
const RootTitle = "Index"

func directoryTitle(reqPath string) string {
	clean := path.Clean("/" + reqPath)
	if clean == "/" {
		return RootTitle
	}
	return path.Base(clean)
}
