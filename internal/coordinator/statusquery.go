package coordinator

import (
	"context"
	"fmt"

	"github.com/alfadb/openclaw/internal/inflight"
)

// statusQueryPhrases is the fixed set of phrases recognized as "what's my
// task status" queries, grounded on the teacher's isNaturalTaskStatusQuery
// (internal/delivery/channels/lark/gateway.go), generalized from the
// teacher's broader NLU-ish matching to a small fixed phrase set since
// spec.md names this as a supplemental, not a general intent classifier.
var statusQueryPhrases = []string{
	"还在处理吗", "还在运行吗", "处理完了吗", "好了吗",
	"task status", "is it done", "are you done", "still working",
}

func matchStatusQuery(content string) (string, bool) {
	normalized := trimmedLower(content)
	for _, phrase := range statusQueryPhrases {
		if normalized == trimmedLower(phrase) {
			return phrase, true
		}
	}
	return "", false
}

// handleStatusQuery answers a recognized status-query phrase synchronously
// from InFlightStore state, without touching InboundGate's watermark or
// dispatching to the agent (SPEC_FULL §4.4 supplemental feature).
func (c *Coordinator) handleStatusQuery(ctx context.Context, event InboundEvent, _ string) error {
	tasks := c.Status(event.AccountID, event.ChatID)
	if len(tasks) == 0 {
		c.replyText(ctx, event, c.lastAnswerReply(event.AccountID, event.ChatID))
		return nil
	}
	task := tasks[0]
	c.replyText(ctx, event, fmt.Sprintf("当前任务状态：%s", statusLabel(task.State)))
	return nil
}

// lastAnswerReply answers a status query when no task is active by showing
// the last completed task's answer, if one was recorded (SPEC_FULL §3).
func (c *Coordinator) lastAnswerReply(accountID, chatID string) string {
	doc, err := c.store.View(accountID)
	if err != nil {
		return "当前没有正在处理的任务。"
	}
	answer, ok := inflight.GetLastAnswer(doc, chatID)
	if !ok || answer.AnswerPreview == "" {
		return "当前没有正在处理的任务。"
	}
	return fmt.Sprintf("当前没有正在处理的任务，上一次的回答：%s", answer.AnswerPreview)
}

func statusLabel(state inflight.State) string {
	switch state {
	case inflight.StateReceived:
		return "已接收，排队中"
	case inflight.StateQueued:
		return "排队中"
	case inflight.StateWorking:
		return "处理中"
	case inflight.StateWaiting:
		return "等待后续消息"
	case inflight.StateDone:
		return "已完成"
	case inflight.StateFailed:
		return "失败，可回复“继续”重试"
	case inflight.StateInterrupted:
		return "已中断，可回复“继续”重试"
	default:
		return string(state)
	}
}

// Status returns the active in-flight tasks for a chat, newest first,
// restoring the teacher's TaskStore.ListByChat (dropped from the distilled
// spec, see SPEC_FULL §4.1).
func (c *Coordinator) Status(accountID, chatID string) []inflight.Task {
	doc, err := c.store.View(accountID)
	if err != nil {
		c.logger.Warn("coordinator: status view failed for %s: %v", accountID, err)
		return nil
	}
	tasks := doc.ListByChat(chatID, true)
	reversed := make([]inflight.Task, len(tasks))
	for i, t := range tasks {
		reversed[len(tasks)-1-i] = t
	}
	return reversed
}
