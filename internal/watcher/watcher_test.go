package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string) (*Watcher, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	w := NewWatcher(dir, []string{".pdf"}, func(context.Context) { calls.Add(1) }, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w, &calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_debouncesBurstIntoOneCall(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	for _, name := range []string{"p1544.pdf", "p15.pdf", "p1212.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange calls = %d, want 1", got)
	}
}

func TestWatcher_ignoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".p15.pdf.part"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange calls = %d, want 0", got)
	}
}

func TestWatcher_removeTriggers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p15.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}
	_, calls := startWatcher(t, dir)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestWatcher_stopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(dir, []string{".pdf"}, func(context.Context) { calls.Add(1) }, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "p15.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange calls after Stop = %d, want 0", got)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	w := NewWatcher(dir, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created: %v", dir, err)
	}
	if w.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", w.Dir(), dir)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.pdf", []string{".pdf"}, true},
		{"/a/b.PDF", []string{"pdf"}, true},
		{"/a/b.md", []string{".pdf"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestWatcher_relevant(t *testing.T) {
	w := NewWatcher("/tmp/data", []string{".pdf"}, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/tmp/data/p15.pdf", true},
		{"/tmp/data/sub/p15.pdf", false},
		{"/tmp/other/p15.pdf", false},
		{"/tmp/data/.p15.pdf", false},
		{"/tmp/data/p15.txt", false},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.path); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
