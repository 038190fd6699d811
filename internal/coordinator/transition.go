package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/statusreactor"
)

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// transition paints nextEmoji on taskID's anchor via StatusReactor, then
// commits the state transition and the returned reaction to InFlightStore.
// Every state transition goes through StatusReactor with the task's current
// reaction as prev (spec.md §4.4).
func (c *Coordinator) transition(ctx context.Context, accountID, taskID string, next inflight.State, nextEmoji string) (inflight.Task, error) {
	doc, err := c.store.View(accountID)
	if err != nil {
		return inflight.Task{}, fmt.Errorf("coordinator: view store: %w", err)
	}
	task, ok := doc.FindByID(taskID)
	if !ok {
		return inflight.Task{}, fmt.Errorf("coordinator: task %s not found", taskID)
	}

	reaction, err := c.reactor.Replace(ctx, statusreactor.ReplaceRequest{
		MessageID:     task.MessageID,
		AccountID:     accountID,
		NextEmojiType: nextEmoji,
		Prev:          task.Reaction,
	})
	if err != nil {
		// Add failures propagate (spec.md §4.2); the caller falls back to
		// leaving the previous reaction in place.
		return task, fmt.Errorf("coordinator: paint %s on task %s: %w", nextEmoji, taskID, err)
	}

	updated, err := c.store.Mutate(accountID, func(d inflight.Document) inflight.Document {
		t, ok := d.FindByID(taskID)
		if !ok {
			return d
		}
		t.State = next
		t.Reaction = &reaction
		t.UpdatedAtMs = nowMs()
		return inflight.UpsertTask(d, t)
	})
	if err != nil {
		return task, fmt.Errorf("coordinator: persist transition for task %s: %w", taskID, err)
	}

	final, ok := updated.FindByID(taskID)
	if !ok {
		return task, fmt.Errorf("coordinator: task %s vanished during transition", taskID)
	}
	return final, nil
}
