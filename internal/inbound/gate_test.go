package inbound

import (
	"context"
	"strings"
	"testing"

	"github.com/alfadb/openclaw/internal/provider"
)

func TestGateFirstDeliveryProceeds(t *testing.T) {
	store := NewStore(t.TempDir())
	gate := New(store, DefaultConfig(), nil, nil)

	decision, err := gate.Check(context.Background(), Event{
		AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", SentAtMs: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Proceed {
		t.Fatalf("expected first delivery to proceed, got %+v", decision)
	}
}

func TestGateInMemoryDuplicateDropped(t *testing.T) {
	store := NewStore(t.TempDir())
	gate := New(store, DefaultConfig(), nil, nil)
	ctx := context.Background()

	first, err := gate.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", SentAtMs: 1000})
	if err != nil || !first.Proceed {
		t.Fatalf("expected first delivery to proceed, got %+v err=%v", first, err)
	}
	second, err := gate.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", SentAtMs: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Proceed || second.Reason != ReasonDuplicateMemory {
		t.Fatalf("expected in-memory duplicate drop, got %+v", second)
	}
}

func TestGatePersistentDuplicateAcrossFreshGate(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	gate1 := New(store, DefaultConfig(), nil, nil)
	if _, err := gate1.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", SentAtMs: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fresh Gate has an empty in-memory cache but shares the persistent
	// store, so the ring-based check must still catch the duplicate.
	gate2 := New(store, DefaultConfig(), nil, nil)
	decision, err := gate2.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", SentAtMs: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Proceed || decision.Reason != ReasonDuplicatePersistent {
		t.Fatalf("expected persistent duplicate drop, got %+v", decision)
	}
}

func TestGateStaleDropSendsNoticeAndNoProceed(t *testing.T) {
	store := NewStore(t.TempDir())
	sender := provider.New()
	cfg := Config{StaleDropEnabled: true, StaleDropReply: true, SkewWindowMs: 0, RecentIDsLimit: 250}
	gate := New(store, cfg, sender, nil)
	ctx := context.Background()

	if _, err := store.Mutate("acct1", "chat1", func(s State) State {
		s.LastProcessedSentAtMs = 2000
		return s
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	decision, err := gate.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_old", SentAtMs: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Proceed || decision.Reason != ReasonStale {
		t.Fatalf("expected stale drop, got %+v", decision)
	}

	sends := sender.CallsByMethod("SendMessage")
	if len(sends) != 1 {
		t.Fatalf("expected exactly one stale notice send, got %d", len(sends))
	}
	call := sends[0]
	if call.SendOpts.ReplyToMessageID != "om_old" {
		t.Fatalf("expected reply to the stale message id, got %+v", call.SendOpts)
	}
	if !strings.Contains(call.SendOpts.Text, "过期消息") || !strings.Contains(call.SendOpts.Text, "reason=out_of_order_delivery") {
		t.Fatalf("unexpected notice text: %q", call.SendOpts.Text)
	}
}

func TestGateStaleDropRecordsIDEvenWithoutReply(t *testing.T) {
	store := NewStore(t.TempDir())
	cfg := Config{StaleDropEnabled: true, StaleDropReply: false, SkewWindowMs: 0, RecentIDsLimit: 250}
	gate := New(store, cfg, nil, nil)
	ctx := context.Background()

	store.Mutate("acct1", "chat1", func(s State) State {
		s.LastProcessedSentAtMs = 2000
		return s
	})

	if _, err := gate.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_old", SentAtMs: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, _ := store.View("acct1", "chat1")
	if !state.Contains("om_old") {
		t.Fatal("expected stale message id recorded regardless of reply setting")
	}
}

func TestGateWatermarkMonotoneOnSuccess(t *testing.T) {
	store := NewStore(t.TempDir())
	gate := New(store, DefaultConfig(), nil, nil)
	ctx := context.Background()

	gate.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_1", SentAtMs: 1000})
	gate.Check(ctx, Event{AccountID: "acct1", ChatID: "chat1", MessageID: "om_2", SentAtMs: 2000})

	state, _ := store.View("acct1", "chat1")
	if state.LastProcessedSentAtMs != 2000 {
		t.Fatalf("expected watermark to advance to 2000, got %d", state.LastProcessedSentAtMs)
	}
}
