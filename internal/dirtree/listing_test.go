package dirtree

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadEntries(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "b.md", "a.txt", "zdir/", "adir/inner.md")
	if err := os.Symlink(filepath.Join(root, "b.md"), filepath.Join(root, "alias.md")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	got, err := ReadEntries(root, "/notes")
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	want := []Entry{
		{Kind: KindDirectory, Path: "/notes/adir/"},
		{Kind: KindDirectory, Path: "/notes/zdir/"},
		{Kind: KindFile, Path: "/notes/a.txt"},
		{Kind: KindFile, Path: "/notes/b.md"},
		{Kind: KindSymlink, Path: "/notes/alias.md"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadEntries =\n%+v\nwant\n%+v", got, want)
	}
}

func TestReadEntries_NoBase(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.md", "d/")

	got, err := ReadEntries(root, "")
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(got) != 2 || got[0].Path != "d/" || got[1].Path != "x.md" {
		t.Errorf("ReadEntries = %+v", got)
	}
	if got[0].Name() != "d" || got[1].Name() != "x.md" {
		t.Errorf("names = %q, %q", got[0].Name(), got[1].Name())
	}
}

func TestReadEntries_Missing(t *testing.T) {
	if _, err := ReadEntries(filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestEntryJSON(t *testing.T) {
	data, err := json.Marshal([]Entry{{Kind: KindDirectory, Path: "/a/"}, {Kind: KindFile, Path: "/b"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"type":"directory","path":"/a/"},{"type":"file","path":"/b"}]`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
