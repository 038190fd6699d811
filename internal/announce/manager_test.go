package announce

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedSend struct {
	item Item
}

type sendRecorder struct {
	mu    sync.Mutex
	calls []recordedSend
	fail  int // number of leading calls that return an error
}

func (r *sendRecorder) send(_ context.Context, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedSend{item: item})
	if r.fail > 0 {
		r.fail--
		return errTimeout
	}
	return nil
}

func (r *sendRecorder) snapshot() []recordedSend {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedSend, len(r.calls))
	copy(out, r.calls)
	return out
}

type timeoutError struct{}

func (timeoutError) Error() string { return "gateway timeout after 60000ms" }

var errTimeout error = timeoutError{}

func waitForCalls(t *testing.T, rec *sendRecorder, n int) []recordedSend {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := rec.snapshot(); len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d send calls, got %d", n, len(rec.snapshot()))
	return nil
}

func TestAnnounceRetry_SameItemResentOnFailure(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	rec := &sendRecorder{fail: 1}

	settings := Settings{Mode: ModeFollowup, DebounceMs: 0, Cap: 20, DropPolicy: DropSummarize}
	m.Enqueue("key1", Item{Prompt: "hello"}, settings, rec.send)

	calls := waitForCalls(t, rec, 2)
	if calls[0].item.Prompt != "hello" || calls[1].item.Prompt != "hello" {
		t.Fatalf("expected both attempts to carry the same prompt, got %+v", calls)
	}
}

func TestAnnounceFollowup_PreservesEnqueueOrder(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	rec := &sendRecorder{}

	settings := Settings{Mode: ModeFollowup, DebounceMs: 0, Cap: 20, DropPolicy: DropSummarize}
	m.Enqueue("key1", Item{Prompt: "first"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "second"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "third"}, settings, rec.send)

	calls := waitForCalls(t, rec, 3)
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if calls[i].item.Prompt != w {
			t.Fatalf("call %d prompt = %q, want %q", i, calls[i].item.Prompt, w)
		}
	}
}

func TestAnnounceCap_DropNewestRejectsIncoming(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	rec := &sendRecorder{}

	// A long debounce holds the drain off until all three enqueues below
	// have already run their cap check synchronously.
	settings := Settings{Mode: ModeFollowup, DebounceMs: 300, Cap: 1, DropPolicy: DropNewest}
	m.Enqueue("key1", Item{Prompt: "a"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "b"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "c"}, settings, rec.send)

	calls := waitForCalls(t, rec, 1)
	if calls[0].item.Prompt != "a" {
		t.Fatalf("expected only the original item \"a\" to survive drop-newest, got %+v", calls)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(rec.snapshot()); got != 1 {
		t.Fatalf("expected exactly 1 send, got %d", got)
	}
}

func TestAnnounceCap_DropOldestAccumulatesSummary(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	rec := &sendRecorder{}

	settings := Settings{Mode: ModeFollowup, DebounceMs: 300, Cap: 1, DropPolicy: DropOldest}
	m.Enqueue("key1", Item{Prompt: "a"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "b"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "c"}, settings, rec.send)

	calls := waitForCalls(t, rec, 2)
	if !containsAll(calls[0].item.Prompt, "Queue overflow", "a", "b") {
		t.Fatalf("expected first send to be an overflow summary mentioning dropped items a and b, got %q", calls[0].item.Prompt)
	}
	if calls[1].item.Prompt != "c" {
		t.Fatalf("expected second send to deliver the surviving item \"c\", got %q", calls[1].item.Prompt)
	}
}

func TestAnnounceCollect_NumbersQueuedItems(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	rec := &sendRecorder{}
	ready := make(chan struct{})
	gatedSend := func(ctx context.Context, item Item) error {
		<-ready
		return rec.send(ctx, item)
	}

	settings := Settings{Mode: ModeCollect, DebounceMs: 50, Cap: 20, DropPolicy: DropSummarize}
	m.Enqueue("key1", Item{Prompt: "one", OriginKey: "chatA"}, settings, gatedSend)
	m.Enqueue("key1", Item{Prompt: "two", OriginKey: "chatA"}, settings, gatedSend)
	close(ready)

	calls := waitForCalls(t, rec, 1)
	prompt := calls[0].item.Prompt
	if !containsAll(prompt, "Queued #1", "one", "Queued #2", "two") {
		t.Fatalf("collect prompt missing expected sections: %q", prompt)
	}
}

func TestAnnounceCollect_CrossChannelSendsIndividually(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	rec := &sendRecorder{}

	settings := Settings{Mode: ModeCollect, DebounceMs: 100, Cap: 20, DropPolicy: DropSummarize}
	m.Enqueue("key1", Item{Prompt: "from-a", OriginKey: "chatA"}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "from-b", OriginKey: "chatB"}, settings, rec.send)

	calls := waitForCalls(t, rec, 2)
	if calls[0].item.Prompt != "from-a" || calls[1].item.Prompt != "from-b" {
		t.Fatalf("expected individual sends preserving content, got %+v", calls)
	}
}

func TestAnnounceStaleness_DropsOldItemsUnlessHighPriority(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	m.now = func() int64 { return 1_000_000 }
	rec := &sendRecorder{}

	settings := Settings{Mode: ModeFollowup, DebounceMs: 0, Cap: 20, DropPolicy: DropSummarize, MaxAgeMs: 1000}
	m.Enqueue("key1", Item{Prompt: "stale", EnqueuedAtMs: 1_000_000 - 5000}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "fresh-priority", EnqueuedAtMs: 1_000_000 - 5000, HighPriority: true}, settings, rec.send)
	m.Enqueue("key1", Item{Prompt: "fresh", EnqueuedAtMs: 1_000_000}, settings, rec.send)

	calls := waitForCalls(t, rec, 2)
	for _, c := range calls {
		if c.item.Prompt == "stale" {
			t.Fatalf("expected stale item to be dropped, got sends %+v", calls)
		}
	}
}

func TestResetForTests_ClearsQueues(t *testing.T) {
	m := NewManager(context.Background(), 4, nil)
	settings := Settings{Mode: ModeFollowup, DebounceMs: 5000, Cap: 20, DropPolicy: DropSummarize}
	m.Enqueue("key1", Item{Prompt: "pending"}, settings, func(context.Context, Item) error { return nil })

	m.ResetForTests()

	m.mu.Lock()
	n := len(m.queues)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("queues = %d after ResetForTests, want 0", n)
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
