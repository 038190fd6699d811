package inflight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadMissingFileReturnsEmptyDocument(t *testing.T) {
	store := NewStore(t.TempDir())
	_, doc, err := store.Read("acct1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(doc.Tasks))
	}
	if doc.Version != documentVersion {
		t.Fatalf("expected version %d, got %d", documentVersion, doc.Version)
	}
}

func TestReadCorruptFileReturnsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	path := store.pathFor("acct1")
	if err := writeRaw(path, "{not json"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, doc, err := store.Read("acct1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tasks) != 0 {
		t.Fatalf("expected empty document on corrupt file, got %d tasks", len(doc.Tasks))
	}
}

func TestMutateUpsertAndRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	task := Task{ID: "task-1", AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", State: StateReceived}

	_, err := store.Mutate("acct1", func(d Document) Document {
		return UpsertTask(d, task)
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}

	doc, err := store.View("acct1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	got, ok := doc.FindByID("task-1")
	if !ok {
		t.Fatal("expected task to round-trip")
	}
	if got.ChatID != "chat1" || got.State != StateReceived {
		t.Fatalf("unexpected round-tripped task: %+v", got)
	}
}

func TestMutateRemoveTask(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Mutate("acct1", func(d Document) Document {
		return UpsertTask(d, Task{ID: "task-1", AccountID: "acct1"})
	})
	store.Mutate("acct1", func(d Document) Document {
		return RemoveTask(d, "task-1")
	})
	doc, _ := store.View("acct1")
	if _, ok := doc.FindByID("task-1"); ok {
		t.Fatal("expected task to be removed")
	}
}

func TestLastInterruptibleRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Mutate("acct1", func(d Document) Document {
		d = UpsertTask(d, Task{ID: "task-1", AccountID: "acct1", ChatID: "chat1", State: StateFailed})
		return SetLastInterruptible(d, "chat1", "task-1")
	})

	doc, _ := store.View("acct1")
	got, ok := GetLastInterruptibleTask(doc, "chat1")
	if !ok {
		t.Fatal("expected last-interruptible task to resolve")
	}
	if got.ID != "task-1" {
		t.Fatalf("unexpected resolved task id %q", got.ID)
	}
}

func TestGetLastInterruptibleTaskMissing(t *testing.T) {
	doc := emptyDocument()
	if _, ok := GetLastInterruptibleTask(doc, "chat1"); ok {
		t.Fatal("expected no last-interruptible task")
	}
}

func TestListByChatActiveOnly(t *testing.T) {
	doc := emptyDocument()
	doc = UpsertTask(doc, Task{ID: "t1", ChatID: "c1", State: StateWorking})
	doc = UpsertTask(doc, Task{ID: "t2", ChatID: "c1", State: StateDone})
	doc = UpsertTask(doc, Task{ID: "t3", ChatID: "c2", State: StateWorking})

	active := doc.ListByChat("c1", true)
	if len(active) != 1 || active[0].ID != "t1" {
		t.Fatalf("expected only t1 active in c1, got %+v", active)
	}

	all := doc.ListByChat("c1", false)
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks in c1, got %d", len(all))
	}
}

func TestClampOriginalText(t *testing.T) {
	short := "hello"
	text, truncated := ClampOriginalText(short)
	if truncated || text != short {
		t.Fatalf("expected short text unchanged, got %q truncated=%v", text, truncated)
	}

	long := make([]rune, MaxOriginalTextChars+10)
	for i := range long {
		long[i] = 'a'
	}
	clamped, truncated := ClampOriginalText(string(long))
	if !truncated {
		t.Fatal("expected truncation flag set")
	}
	if len([]rune(clamped)) != MaxOriginalTextChars {
		t.Fatalf("expected clamp to %d runes, got %d", MaxOriginalTextChars, len([]rune(clamped)))
	}
}

func TestIsResumable(t *testing.T) {
	resumable := []State{StateFailed, StateInterrupted}
	for _, s := range resumable {
		if !IsResumable(s) {
			t.Fatalf("expected %q to be resumable", s)
		}
	}
	notResumable := []State{StateReceived, StateQueued, StateWorking, StateWaiting, StateDone}
	for _, s := range notResumable {
		if IsResumable(s) {
			t.Fatalf("expected %q to not be resumable", s)
		}
	}
}

func writeRaw(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
