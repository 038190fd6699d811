package coordinator

import (
	"context"
	"strings"

	"github.com/alfadb/openclaw/internal/inbound"
	"github.com/alfadb/openclaw/internal/provider"
)

func (c *Coordinator) mentionsBot(event InboundEvent) bool {
	if len(c.botKeys) == 0 {
		return false
	}
	for _, mention := range event.Mentions {
		for _, key := range c.botKeys {
			if mention == key {
				return true
			}
		}
	}
	return false
}

// HandleInbound runs the full ordering from spec.md §4.4: in-memory dedup,
// event parsing (already done by the caller into event), status-query
// short-circuit, the persistent InboundGate layer, policy checks,
// classification, task creation/resume, and agent dispatch.
func (c *Coordinator) HandleInbound(ctx context.Context, event InboundEvent) error {
	if !c.gate.Dedup().TryRecord(event.MessageID) {
		return nil
	}

	event.Content = StripBotMentions(event.Content, c.botKeys)

	if query, ok := matchStatusQuery(event.Content); ok {
		return c.handleStatusQuery(ctx, event, query)
	}

	decision, err := c.gate.CheckPersistent(ctx, inbound.Event{
		AccountID: event.AccountID,
		ChatID:    event.ChatID,
		MessageID: event.MessageID,
		SentAtMs:  event.CreateTimeMs,
	})
	if err != nil {
		c.logger.Warn("coordinator: inbound gate check failed for %s: %v", event.MessageID, err)
		return nil
	}
	if !decision.Proceed {
		return nil
	}

	mentioned := c.mentionsBot(event)
	allow, recordHistory := c.checkPolicy(event, mentioned)
	if recordHistory {
		c.history.record(event)
	}
	if !allow {
		return nil
	}

	if IsResumeRequest(event.Content) {
		return c.handleResume(ctx, event)
	}
	return c.handleNewTask(ctx, event)
}

// replyText sends a plain text reply to event's anchor message, logging
// (but not failing the caller on) transport errors, matching the
// best-effort texture of other reaction/notice paths.
func (c *Coordinator) replyText(ctx context.Context, event InboundEvent, text string) {
	if c.sender == nil {
		return
	}
	_, err := c.sender.SendMessage(ctx, provider.SendOptions{
		To:               event.ChatID,
		Text:             text,
		ReplyToMessageID: event.MessageID,
		AccountID:        event.AccountID,
	})
	if err != nil {
		c.logger.Warn("coordinator: reply send failed for %s: %v", event.MessageID, err)
	}
}

func trimmedLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
