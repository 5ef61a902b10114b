package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/sprig"
)

// Template names the server executes.
const (
	MarkdownTemplate         = "markdown.html"
	DirectoryTemplate        = "directory.html"
	MarkdownPartialTemplate  = "markdown_partial.html"
	DirectoryPartialTemplate = "directory_partial.html"
)

// ErrTemplateMissing is returned when a template name is not in the set.
var ErrTemplateMissing = errors.New("template not defined")

//go:embed defaults/*.html
var defaultTemplates embed.FS

// TemplateStore holds the current template set. Executions share the set
// under a read lock; Reload builds a complete new set and swaps it in.
type TemplateStore struct {
	root string

	mu       sync.RWMutex
	set      *template.Template
	loadedAt time.Time
	files    []string
}

// NewTemplateStore parses the built-in templates overlaid with every *.html
// file under root. A missing root is not an error: the built-ins are used.
func NewTemplateStore(root string) (*TemplateStore, error) {
	s := &TemplateStore{root: root}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the directory user templates are read from.
func (s *TemplateStore) Root() string { return s.root }

// Reload re-parses the template set. On failure the previous set stays active.
func (s *TemplateStore) Reload() error {
	set, files, err := parseSet(s.root)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.set = set
	s.files = files
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// LoadedAt returns when the current set was parsed.
func (s *TemplateStore) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Files returns the user template files in the current set, relative to root.
func (s *TemplateStore) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.files...)
}

// Has reports whether name is defined in the current set.
func (s *TemplateStore) Has(name string) bool {
	return s.current().Lookup(name) != nil
}

// Execute renders the named template with data.
func (s *TemplateStore) Execute(w io.Writer, name string, data any) error {
	t := s.current().Lookup(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTemplateMissing, name)
	}
	return t.Execute(w, data)
}

func (s *TemplateStore) current() *template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

func parseSet(root string) (*template.Template, []string, error) {
	set, err := template.New("zettel").Funcs(sprig.FuncMap()).ParseFS(defaultTemplates, "defaults/*.html")
	if err != nil {
		return nil, nil, fmt.Errorf("parse built-in templates: %w", err)
	}
	if root == "" {
		return set, nil, nil
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return set, nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if _, err := set.New(name).Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		files = append(files, name)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return set, files, nil
}
