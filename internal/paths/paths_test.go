package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanRelative(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/", "", true},
		{"/page", "page", true},
		{"/notes/", "notes", true},
		{"/notes//today.md", "notes/today.md", true},
		{"/./notes/./a", "notes/a", true},
		{"/../etc/passwd", "", false},
		{"/notes/../../secret", "", false},
		{"/notes/..", "", false},
		{"relative", "", false},
		{"", "", false},
		{"/nul\x00byte", "", false},
		{"/dots..in..name", "dots..in..name", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CleanRelative(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("CleanRelative(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CleanRelative(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	if got, want := Join("/srv/content", "a/b.md"), filepath.Join("/srv/content", "a", "b.md"); got != want {
		t.Errorf("Join = %s, want %s", got, want)
	}
	if got, want := Join("/srv/content/", ""), "/srv/content"; got != want {
		t.Errorf("Join(root, \"\") = %s, want %s", got, want)
	}
}

func TestCanonicalizePath(t *testing.T) {
	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "subdir", "test.md")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("# test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}

	expected := "subdir/test.md"
	if canonical != expected {
		t.Errorf("Expected %s, got %s", expected, canonical)
	}
}

func TestIsWithin(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "root")
	outside := filepath.Join(tempDir, "outside")
	for _, dir := range []string{root, outside} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	inside := filepath.Join(root, "note.md")
	secret := filepath.Join(outside, "secret.txt")
	for _, f := range []string{inside, secret} {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if !IsWithin(inside, root) {
		t.Error("Expected file to be within root")
	}
	if !IsWithin(root, root) {
		t.Error("Expected root to be within itself")
	}
	if IsWithin(secret, root) {
		t.Error("Expected file outside root to return false")
	}

	link := filepath.Join(root, "escape.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if IsWithin(link, root) {
		t.Error("Expected symlink pointing outside root to return false")
	}
}
