package testing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// MediaTree builds a throwaway media folder under t.TempDir(). Every write
// and touch stamps the file with a strictly increasing modification time so
// digests change even on filesystems with coarse timestamps.
type MediaTree struct {
	t     testing.TB
	Root  string
	clock time.Time
}

// NewMediaTree creates an empty tree and writes files, given as
// slash-separated collection-relative paths.
func NewMediaTree(t testing.TB, files ...string) *MediaTree {
	t.Helper()
	m := &MediaTree{
		t:     t,
		Root:  t.TempDir(),
		clock: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, f := range files {
		m.WriteFile(f, 128)
	}
	return m
}

// Path returns the absolute path of a collection-relative path.
func (m *MediaTree) Path(rel string) string {
	return filepath.Join(m.Root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
}

func (m *MediaTree) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

// Mkdir creates a directory and its parents.
func (m *MediaTree) Mkdir(rel string) string {
	m.t.Helper()
	p := m.Path(rel)
	if err := os.MkdirAll(p, 0755); err != nil {
		m.t.Fatalf("mkdir %s: %v", rel, err)
	}
	return p
}

// WriteFile creates or replaces a file of size bytes.
func (m *MediaTree) WriteFile(rel string, size int) string {
	m.t.Helper()
	p := m.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		m.t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(strings.Repeat("x", size)), 0644); err != nil {
		m.t.Fatalf("write %s: %v", rel, err)
	}
	stamp := m.tick()
	if err := os.Chtimes(p, stamp, stamp); err != nil {
		m.t.Fatalf("chtimes %s: %v", rel, err)
	}
	return p
}

// Touch moves the modification time of an existing entry forward.
func (m *MediaTree) Touch(rel string) {
	m.t.Helper()
	stamp := m.tick()
	if err := os.Chtimes(m.Path(rel), stamp, stamp); err != nil {
		m.t.Fatalf("touch %s: %v", rel, err)
	}
}

// Remove deletes a file or a whole directory.
func (m *MediaTree) Remove(rel string) {
	m.t.Helper()
	if err := os.RemoveAll(m.Path(rel)); err != nil {
		m.t.Fatalf("remove %s: %v", rel, err)
	}
}

// Rename moves an entry inside the tree.
func (m *MediaTree) Rename(from, to string) {
	m.t.Helper()
	if err := os.MkdirAll(filepath.Dir(m.Path(to)), 0755); err != nil {
		m.t.Fatalf("mkdir for %s: %v", to, err)
	}
	if err := os.Rename(m.Path(from), m.Path(to)); err != nil {
		m.t.Fatalf("rename %s -> %s: %v", from, to, err)
	}
}

// AssertNoError is a helper to fail the test if error is not nil
func AssertNoError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		}
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError is a helper to fail the test if error is nil
func AssertError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected error but got nil", msgAndArgs[0])
		}
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual is a helper to fail the test if two comparable values differ
func AssertEqual(t testing.TB, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got %v, want %v", msgAndArgs[0], got, want)
		}
		t.Fatalf("got %v, want %v", got, want)
	}
}
