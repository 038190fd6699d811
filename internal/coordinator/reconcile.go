package coordinator

import (
	"context"
	"time"

	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/statusreactor"
)

const defaultReconcileMaxAge = 24 * time.Hour

// Reconcile implements spec.md §4.4's boot reconciliation: any task still
// mid-flight when the process last stopped is marked interrupted, its
// anchor explained and cleaned of lingering typing reactions, and recorded
// as last-interruptible so the user can resume it with "continue".
func (c *Coordinator) Reconcile(ctx context.Context, accountID string, maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = defaultReconcileMaxAge
	}
	doc, err := c.store.View(accountID)
	if err != nil {
		return err
	}

	now := nowMs()
	var toInterrupt []inflight.Task
	for _, task := range doc.Tasks {
		if task.InterruptedHandled {
			continue
		}
		if task.State != inflight.StateQueued && task.State != inflight.StateWorking && task.State != inflight.StateWaiting {
			continue
		}
		if now-task.UpdatedAtMs > maxAge.Milliseconds() {
			continue
		}
		toInterrupt = append(toInterrupt, task)
	}

	for _, task := range toInterrupt {
		c.cleanupTypingReactions(ctx, accountID, task)

		reaction, err := c.reactor.Replace(ctx, statusreactor.ReplaceRequest{
			MessageID:     task.MessageID,
			AccountID:     accountID,
			NextEmojiType: statusreactor.EmojiError,
			Prev:          task.Reaction,
		})
		if err != nil {
			c.logger.Warn("coordinator: reconcile paint error failed for task %s: %v", task.ID, err)
		}

		if _, err := c.store.Mutate(accountID, func(d inflight.Document) inflight.Document {
			t, ok := d.FindByID(task.ID)
			if !ok {
				return d
			}
			t.State = inflight.StateInterrupted
			t.InterruptedHandled = true
			t.UpdatedAtMs = nowMs()
			if err == nil {
				t.Reaction = &reaction
			}
			d = inflight.UpsertTask(d, t)
			return inflight.SetLastInterruptible(d, task.ChatID, task.ID)
		}); err != nil {
			c.logger.Warn("coordinator: reconcile persist failed for task %s: %v", task.ID, err)
		}

		// Replied after the task is persisted as interrupted, so the outbound
		// hook does not finalize a waiting task as done.
		c.replyText(ctx, InboundEvent{AccountID: accountID, ChatID: task.ChatID, MessageID: task.MessageID},
			`处理过程被中断，回复"继续"可重试。`)
	}

	return nil
}

// cleanupTypingReactions removes any lingering app-authored TYPING reaction
// left on task's anchor from an interrupted streaming response.
func (c *Coordinator) cleanupTypingReactions(ctx context.Context, accountID string, task inflight.Task) {
	if c.sender == nil {
		return
	}
	reactions, err := c.sender.ListReactions(ctx, task.MessageID, statusreactor.EmojiTyping, accountID)
	if err != nil {
		c.logger.Warn("coordinator: list typing reactions failed for task %s: %v", task.ID, err)
		return
	}
	for _, r := range reactions {
		if r.OperatorType != "app" {
			continue
		}
		if err := c.sender.RemoveReaction(ctx, task.MessageID, r.ReactionID, accountID); err != nil {
			c.logger.Warn("coordinator: remove typing reaction %s failed for task %s: %v", r.ReactionID, task.ID, err)
		}
	}
}
