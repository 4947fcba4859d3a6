package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestJournal(t *testing.T) (*Journal, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	j, err := Open(context.Background(), "redis://"+mr.Addr(), Key("org/ocr", "test", ""))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j, mr
}

func TestJournal_Lifecycle(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()

	_, ok, err := j.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatalf("expected no entry for fresh index")
	}

	if err := j.MarkUploaded(ctx, 3, "abc"); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}
	entry, ok, err := j.Get(ctx, 3)
	if err != nil || !ok {
		t.Fatalf("Get after upload: ok=%v err=%v", ok, err)
	}
	if entry.State != StateUploaded || entry.ID != "abc" {
		t.Errorf("expected uploaded:abc, got %+v", entry)
	}

	if err := j.MarkDone(ctx, 3, "abc"); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	if err := j.MarkUploaded(ctx, 4, "def"); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}

	counts, err := j.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts error: %v", err)
	}
	if counts[StateDone] != 1 || counts[StateUploaded] != 1 {
		t.Errorf("expected 1 done and 1 uploaded, got %v", counts)
	}

	if err := j.Reset(ctx); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if _, ok, _ := j.Get(ctx, 3); ok {
		t.Errorf("expected entry to be gone after reset")
	}
}

func TestJournal_MalformedValue(t *testing.T) {
	j, mr := newTestJournal(t)

	mr.HSet(Key("org/ocr", "test", ""), "7", "garbage")

	if _, _, err := j.Get(context.Background(), 7); err == nil {
		t.Errorf("expected error for malformed value, got nil")
	}
}

func TestOpen_BadURL(t *testing.T) {
	if _, err := Open(context.Background(), "not a url", "k"); err == nil {
		t.Errorf("expected error for bad url, got nil")
	}
}

func TestOpen_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis error: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := Open(context.Background(), "redis://"+addr, "k"); err == nil {
		t.Errorf("expected error for unreachable redis, got nil")
	}
}

func TestKey(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.parquet")
	second := filepath.Join(dir, "second.parquet")

	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{name: "same split", a: Key("org/ocr", "test", ""), b: Key("org/ocr", "test", ""), same: true},
		{name: "different split", a: Key("org/ocr", "test", ""), b: Key("org/ocr", "train", "")},
		{name: "local file vs hub split", a: Key("org/ocr", "test", first), b: Key("org/ocr", "test", "")},
		{name: "different local files", a: Key("org/ocr", "test", first), b: Key("org/ocr", "test", second)},
		{name: "same local file", a: Key("org/ocr", "test", first), b: Key("other/repo", "train", first), same: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a == tt.b; got != tt.same {
				t.Errorf("Expected same=%v for %q and %q", tt.same, tt.a, tt.b)
			}
		})
	}
}
