package coordinator

import (
	"context"

	"github.com/alfadb/openclaw/internal/agent"
	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/session"
	"github.com/alfadb/openclaw/internal/statusreactor"
)

// dispatchTask implements spec.md §4.4 steps 7-8: build the agent envelope,
// transition to queued, dispatch, and observe the stream to drive the
// remaining state transitions.
func (c *Coordinator) dispatchTask(ctx context.Context, task inflight.Task, accountID string) error {
	queued, err := c.transition(ctx, accountID, task.ID, inflight.StateQueued, statusreactor.EmojiQueued)
	if err != nil {
		c.logger.Warn("coordinator: paint queued failed for task %s: %v", task.ID, err)
		queued = task
	}

	c.recordUserTurn(queued, accountID)

	if c.dispatcher == nil {
		return nil
	}

	workingPainted := false
	callbacks := agent.StatusCallbacks{
		OnReplyStart: func() {
			if workingPainted {
				return
			}
			workingPainted = true
			if _, err := c.transition(ctx, accountID, queued.ID, inflight.StateWorking, statusreactor.EmojiWorking); err != nil {
				c.logger.Warn("coordinator: paint working failed for task %s: %v", queued.ID, err)
			}
		},
		OnIdle: func(result agent.DispatchResult) {
			c.finishDispatch(ctx, accountID, queued, result)
		},
	}

	env := c.buildEnvelope(ctx, queued)
	opts := agent.ReplyOptions{
		SessionKey:       sessionKey(accountID, queued.ChatID),
		Prompt:           env.Prompt,
		QuotedText:       env.QuotedText,
		SenderLabel:      env.SenderLabel,
		MentionTargets:   env.MentionTargets,
		ReplyToMessageID: queued.MessageID,
	}
	if _, err := c.dispatcher.DispatchReplyFromConfig(ctx, c.route, opts, callbacks); err != nil {
		c.logger.Warn("coordinator: dispatch failed for task %s: %v", queued.ID, err)
		c.finishDispatch(ctx, accountID, queued, agent.DispatchResult{})
	}
	return nil
}

// finishDispatch implements the idle branch of spec.md §4.4 step 8.
func (c *Coordinator) finishDispatch(ctx context.Context, accountID string, task inflight.Task, result agent.DispatchResult) {
	switch {
	case result.Counts.Final > 0 || result.QueuedFinal:
		c.finishDone(ctx, accountID, task, result.FinalText, result.TokensUsed)
	case result.Counts.Followup > 0:
		c.finishWaiting(ctx, accountID, task)
	default:
		c.finishFailed(ctx, accountID, task)
	}
}

// finishDone transitions task to done and removes its ledger record. Since
// the record is gone the moment this returns, answerPreview/tokensUsed
// (SPEC_FULL §3's "show the last answer" supplement) are recorded onto the
// chat's LastAnswer trace first, mirroring how SetLastInterruptible survives
// a task past its own removal.
func (c *Coordinator) finishDone(ctx context.Context, accountID string, task inflight.Task, answerText string, tokensUsed int) {
	if _, err := c.transition(ctx, accountID, task.ID, inflight.StateDone, statusreactor.EmojiDone); err != nil {
		c.logger.Warn("coordinator: paint done failed for task %s: %v", task.ID, err)
	}
	if _, err := c.store.Mutate(accountID, func(d inflight.Document) inflight.Document {
		if answerText != "" || tokensUsed != 0 {
			d = inflight.SetLastAnswer(d, task.ChatID, inflight.LastAnswer{
				TaskID:        task.ID,
				AnswerPreview: inflight.ClampAnswerPreview(answerText),
				TokensUsed:    tokensUsed,
				CompletedAtMs: nowMs(),
			})
		}
		return inflight.RemoveTask(d, task.ID)
	}); err != nil {
		c.logger.Warn("coordinator: remove done task %s failed: %v", task.ID, err)
	}
}

func (c *Coordinator) finishWaiting(ctx context.Context, accountID string, task inflight.Task) {
	if _, err := c.transition(ctx, accountID, task.ID, inflight.StateWaiting, statusreactor.EmojiWaiting); err != nil {
		c.logger.Warn("coordinator: paint waiting failed for task %s: %v", task.ID, err)
	}
}

func (c *Coordinator) finishFailed(ctx context.Context, accountID string, task inflight.Task) {
	if _, err := c.transition(ctx, accountID, task.ID, inflight.StateFailed, statusreactor.EmojiError); err != nil {
		c.logger.Warn("coordinator: paint failed failed for task %s: %v", task.ID, err)
	}
	if _, err := c.store.Mutate(accountID, func(d inflight.Document) inflight.Document {
		return inflight.SetLastInterruptible(d, task.ChatID, task.ID)
	}); err != nil {
		c.logger.Warn("coordinator: record last-interruptible for task %s failed: %v", task.ID, err)
	}
	c.replyText(ctx, InboundEvent{AccountID: accountID, ChatID: task.ChatID, MessageID: task.MessageID}, `处理失败，回复"继续"可重试。`)
}

func sessionKey(accountID, chatID string) string {
	return "feishu-" + accountID + "-" + chatID
}

// recordUserTurn persists the inbound prompt into the task's session
// transcript before dispatch, so a transcript exists independent of
// whether the agent itself appends anything. Best-effort: a missing
// SessionFactory (tests that don't care about transcripts) is a no-op.
func (c *Coordinator) recordUserTurn(task inflight.Task, accountID string) {
	if c.sessions == nil {
		return
	}
	mgr := c.sessions(sessionKey(accountID, task.ChatID))
	if mgr == nil {
		return
	}
	if err := mgr.AppendMessage(session.Entry{
		Role:        "user",
		Content:     task.OriginalText,
		TimestampMs: nowMs(),
	}); err != nil {
		c.logger.Warn("coordinator: record user turn failed for task %s: %v", task.ID, err)
	}
}
