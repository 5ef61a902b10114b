package resolver

import (
	"testing"

	"zettel/internal/testutil"
)

func TestGolden_NotesLookups(t *testing.T) {
	fixture := testutil.LoadFixture(t, "notes")
	r := New(fixture.ContentRoot, fixture.StaticRoot)

	type lookup struct {
		URI      string   `json:"uri"`
		Resolved Resolved `json:"resolved"`
	}
	uris := []string{
		"/",
		"/inbox",
		"/index.md",
		"/journal/2024-01-03",
		"/journal/assets/diagram.svg",
		"/projects/",
		"/projects/todo.txt",
		"/projects/zettel/design",
		"/main.js",
		"/style.css",
		"/missing",
		"/journal/../inbox",
	}
	got := make([]lookup, 0, len(uris))
	for _, uri := range uris {
		got = append(got, lookup{URI: uri, Resolved: r.Lookup(uri)})
	}
	testutil.CompareGolden(t, fixture, "lookups", got)
}
