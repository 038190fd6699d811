package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/provider"
)

func TestReconcile_MarksInterruptedAndCleansTypingReactions(t *testing.T) {
	h := newHarness(t, directPolicy())
	ctx := context.Background()

	task := inflight.Task{
		ID:          inflight.CreateID(),
		Provider:    "feishu",
		AccountID:   testAccountID,
		ChatID:      "chat1",
		ChatType:    inflight.ChatDirect,
		MessageID:   "msg-working",
		State:       inflight.StateWorking,
		UpdatedAtMs: time.Now().UnixMilli(),
	}
	if _, err := h.store.Mutate(testAccountID, func(d inflight.Document) inflight.Document {
		return inflight.UpsertTask(d, task)
	}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	if err := h.coord.Reconcile(ctx, testAccountID, time.Hour); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	doc, err := h.store.View(testAccountID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	got, ok := doc.FindByID(task.ID)
	if !ok {
		t.Fatalf("task vanished after reconcile")
	}
	if got.State != inflight.StateInterrupted {
		t.Fatalf("state = %s, want interrupted", got.State)
	}
	if !got.InterruptedHandled {
		t.Fatalf("expected InterruptedHandled to be set")
	}
	if id, ok := doc.LastInterruptibleByChatID["chat1"]; !ok || id != task.ID {
		t.Fatalf("expected task recorded as last-interruptible, got %q", id)
	}

	var paintedError bool
	for _, c := range h.sender.CallsByMethod("AddReaction") {
		if c.MessageID == "msg-working" && c.EmojiType == "ERROR" {
			paintedError = true
		}
	}
	if !paintedError {
		t.Fatalf("expected ERROR reaction painted on task anchor")
	}

	if got := len(h.sender.CallsByMethod("ListReactions")); got != 1 {
		t.Fatalf("ListReactions calls = %d, want 1 (typing cleanup)", got)
	}

	var interruptedReply bool
	for _, c := range h.sender.CallsByMethod("SendMessage") {
		if c.SendOpts.ReplyToMessageID == "msg-working" {
			interruptedReply = true
		}
	}
	if !interruptedReply {
		t.Fatalf("expected interrupted-notice reply sent")
	}
}

func TestReconcile_SkipsAlreadyHandledAndTerminalTasks(t *testing.T) {
	h := newHarness(t, directPolicy())
	ctx := context.Background()

	handled := inflight.Task{
		ID: inflight.CreateID(), AccountID: testAccountID, ChatID: "chat1",
		MessageID: "msg-handled", State: inflight.StateWorking,
		InterruptedHandled: true, UpdatedAtMs: time.Now().UnixMilli(),
	}
	done := inflight.Task{
		ID: inflight.CreateID(), AccountID: testAccountID, ChatID: "chat1",
		MessageID: "msg-done", State: inflight.StateDone, UpdatedAtMs: time.Now().UnixMilli(),
	}
	if _, err := h.store.Mutate(testAccountID, func(d inflight.Document) inflight.Document {
		d = inflight.UpsertTask(d, handled)
		return inflight.UpsertTask(d, done)
	}); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	if err := h.coord.Reconcile(ctx, testAccountID, time.Hour); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if got := len(h.sender.CallsByMethod("AddReaction")); got != 0 {
		t.Fatalf("AddReaction calls = %d, want 0 (nothing eligible to interrupt)", got)
	}
}

func TestWrapSender_FinalizesWaitingTaskOnSuccessfulReply(t *testing.T) {
	h := newHarness(t, directPolicy())
	ctx := context.Background()

	task := inflight.Task{
		ID: inflight.CreateID(), AccountID: testAccountID, ChatID: "chat1",
		MessageID: "msg-anchor", State: inflight.StateWaiting, UpdatedAtMs: time.Now().UnixMilli(),
	}
	if _, err := h.store.Mutate(testAccountID, func(d inflight.Document) inflight.Document {
		return inflight.UpsertTask(d, task)
	}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	wrapped := h.coord.WrapSender(testAccountID, h.sender)
	opts := provider.SendOptions{To: "chat1", Text: "here's the answer", ReplyToMessageID: task.MessageID, AccountID: testAccountID}
	if _, err := wrapped.SendMessage(ctx, opts); err != nil {
		t.Fatalf("send via wrapped sender: %v", err)
	}

	doc, err := h.store.View(testAccountID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, ok := doc.FindByID(task.ID); ok {
		t.Fatalf("expected waiting task removed after finalize, still present")
	}
}
