package coordinator

import (
	"context"

	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/statusreactor"
)

// handleNewTask implements spec.md §4.4 step 6: create a new task and
// transition it to received, then continue the dispatch pipeline.
func (c *Coordinator) handleNewTask(ctx context.Context, event InboundEvent) error {
	originalText, truncated := inflight.ClampOriginalText(event.Content)
	task := inflight.Task{
		ID:           inflight.CreateID(),
		Provider:     "feishu",
		AccountID:    event.AccountID,
		ChatID:       event.ChatID,
		ChatType:     event.ChatType,
		UserOpenID:   event.SenderID,
		MessageID:    event.MessageID,
		OriginalText: originalText,
		Truncated:    truncated,
		State:        inflight.StateReceived,
		UpdatedAtMs:  nowMs(),
		Mentions:     c.mentionTargets(event.Mentions),
		RootID:       event.RootID,
		ParentID:     event.ParentID,
		CreateTimeMs: event.CreateTimeMs,
	}

	if _, err := c.store.Mutate(event.AccountID, func(d inflight.Document) inflight.Document {
		return inflight.UpsertTask(d, task)
	}); err != nil {
		c.logger.Warn("coordinator: create task failed for %s: %v", event.MessageID, err)
		return nil
	}

	received, err := c.transition(ctx, event.AccountID, task.ID, inflight.StateReceived, statusreactor.EmojiReceived)
	if err != nil {
		c.logger.Warn("coordinator: paint received failed for task %s: %v", task.ID, err)
		received = task
	}
	return c.dispatchTask(ctx, received, event.AccountID)
}

// handleResume implements spec.md §4.4 step 5's resume path: accept the
// last interruptible task for the chat only if it is still resumable, its
// attempt budget allows another try, and (in groups) the sender matches the
// task's original sender. Otherwise reply that there is no prior task.
func (c *Coordinator) handleResume(ctx context.Context, event InboundEvent) error {
	doc, err := c.store.View(event.AccountID)
	if err != nil {
		c.logger.Warn("coordinator: view store for resume failed: %v", err)
		c.replyText(ctx, event, "no prior task")
		return nil
	}

	task, ok := inflight.GetLastInterruptibleTask(doc, event.ChatID)
	if !ok || !c.resumable(task, event) {
		c.replyText(ctx, event, "no prior task")
		return nil
	}

	updated, err := c.store.Mutate(event.AccountID, func(d inflight.Document) inflight.Document {
		t, ok := d.FindByID(task.ID)
		if !ok {
			return d
		}
		t.ResumeAttempts++
		t.State = inflight.StateReceived
		t.UpdatedAtMs = nowMs()
		return inflight.UpsertTask(d, t)
	})
	if err != nil {
		c.logger.Warn("coordinator: resume persist failed for task %s: %v", task.ID, err)
		return nil
	}
	resumed, ok := updated.FindByID(task.ID)
	if !ok {
		return nil
	}

	received, err := c.transition(ctx, event.AccountID, resumed.ID, inflight.StateReceived, statusreactor.EmojiReceived)
	if err != nil {
		c.logger.Warn("coordinator: paint received failed for resumed task %s: %v", resumed.ID, err)
		received = resumed
	}
	return c.dispatchTask(ctx, received, event.AccountID)
}

// resumable implements spec.md §4.4 step 5's acceptance conditions.
func (c *Coordinator) resumable(task inflight.Task, event InboundEvent) bool {
	if !inflight.IsResumable(task.State) {
		return false
	}
	if task.ResumeAttempts >= inflight.MaxResumeAttempts {
		return false
	}
	if event.ChatType == inflight.ChatGroup && task.UserOpenID != "" && task.UserOpenID != event.SenderID {
		return false
	}
	return true
}
