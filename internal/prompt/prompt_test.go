package prompt

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T, files map[string]string) *Manager {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewManager(dir)
}

func TestGetLoadsAndCaches(t *testing.T) {
	m := newTestManager(t, map[string]string{"greeting": "You are helpful."})

	text, err := m.Get("greeting")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if text != "You are helpful." {
		t.Errorf("Unexpected prompt text: %q", text)
	}

	// Second read comes from cache even if the file disappears.
	if err := os.Remove(filepath.Join(m.dir, "greeting.md")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get("greeting"); err != nil {
		t.Errorf("Expected cached prompt after file removal, got %v", err)
	}
}

func TestGetMissingPrompt(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Get("absent"); err == nil {
		t.Fatal("Expected error for missing prompt")
	}
}

func TestRenderSubstitutesVars(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"qa": "Context:\n{context}\n\nQuestion: {query}",
	})

	text, err := m.Render("qa", map[string]string{
		"context": "some passages",
		"query":   "what happened?",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "Context:\nsome passages\n\nQuestion: what happened?"
	if text != want {
		t.Errorf("Expected %q, got %q", want, text)
	}
}

func TestList(t *testing.T) {
	m := newTestManager(t, map[string]string{"a": "x", "b": "y"})

	names, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("Expected 2 prompts, got %v", names)
	}
}
