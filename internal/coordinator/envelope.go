package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alfadb/openclaw/internal/inflight"
)

// envelope is the composed inbound wrapping spec.md §4.4 step 7 names:
// Prompt is the full "[timestamp] sender in chat: content" text (plus any
// recent-history/quote/mention-target trimmings) the agent receives;
// QuotedText, SenderLabel, and MentionTargets are the same optional parts
// broken out for a dispatcher that wants them structured instead of
// flattened into Prompt.
type envelope struct {
	Prompt         string
	QuotedText     string
	SenderLabel    string
	MentionTargets []string
}

// buildEnvelope implements spec.md §4.4 step 7 and the glossary's Envelope
// entry: canonical text wrapping that identifies channel, sender, and
// timestamp to the agent, with quoted-message text, recent gated-out group
// context, and a mention-targets hint prepended/appended when applicable.
// Grounded on the teacher's formatChatSender/formatChatMessageLines
// "[timestamp] sender: content" line shape
// (internal/delivery/channels/lark/chat_context.go).
func (c *Coordinator) buildEnvelope(ctx context.Context, task inflight.Task) envelope {
	env := envelope{
		QuotedText:     c.fetchQuotedText(ctx, task),
		SenderLabel:    envelopeSender(task.UserOpenID),
		MentionTargets: c.mentionTargets(task.Mentions),
	}

	var b strings.Builder
	if lines := c.recentHistoryLines(task.ChatID, task.MessageID); lines != "" {
		b.WriteString(lines)
		b.WriteString("\n\n")
	}
	if env.QuotedText != "" {
		fmt.Fprintf(&b, "> %s\n", env.QuotedText)
	}
	fmt.Fprintf(&b, "[%s] %s in %s: %s", envelopeTimestamp(task.CreateTimeMs), env.SenderLabel, task.ChatID, task.OriginalText)
	if len(env.MentionTargets) > 0 {
		fmt.Fprintf(&b, "\n(mention targets: %s)", strings.Join(env.MentionTargets, ", "))
	}
	env.Prompt = b.String()

	return env
}

// envelopeTimestamp and envelopeSender adapt the teacher's
// formatChatSender: a bare provider id wrapped as "user(id)", matching the
// teacher's "user(" + senderID + ")" shape for non-bot senders.
func envelopeSender(userOpenID string) string {
	return "user(" + userOpenID + ")"
}

func envelopeTimestamp(createTimeMs int64) string {
	if createTimeMs == 0 {
		return time.Now().UTC().Format("2006-01-02 15:04:05")
	}
	return time.UnixMilli(createTimeMs).UTC().Format("2006-01-02 15:04:05")
}

// fetchQuotedText resolves the quoted/replied-to message's text via the
// Provider's FetchMessage capability (spec.md §6), preferring the direct
// parent over the thread root. Best-effort: a fetch failure or missing
// quote silently omits this part of the envelope rather than blocking
// dispatch.
func (c *Coordinator) fetchQuotedText(ctx context.Context, task inflight.Task) string {
	quoteID := task.ParentID
	if quoteID == "" {
		quoteID = task.RootID
	}
	if quoteID == "" || quoteID == task.MessageID || c.sender == nil {
		return ""
	}
	msg, err := c.sender.FetchMessage(ctx, quoteID, task.AccountID)
	if err != nil {
		c.logger.Warn("coordinator: fetch quoted message %s failed: %v", quoteID, err)
		return ""
	}
	return strings.TrimSpace(msg.Text)
}

// mentionTargets returns the @-mentioned keys from mentions excluding the
// bot's own, the "mention targets" hint spec.md §4.4 step 7 names.
func (c *Coordinator) mentionTargets(mentions []string) []string {
	var targets []string
	for _, mention := range mentions {
		if isBotKey(mention, c.botKeys) {
			continue
		}
		targets = append(targets, mention)
	}
	return targets
}

func isBotKey(mention string, botKeys []string) bool {
	for _, key := range botKeys {
		if mention == key {
			return true
		}
	}
	return false
}

// recentHistoryLines renders the group-history ring recorded for chatID
// (spec.md §4.4 step 4: gated-out group messages recorded "so that when the
// bot is later mentioned, it has recent context") into the same
// "[timestamp] sender: content" line shape as the primary envelope line.
// excludeMessageID drops the message currently being dispatched, since
// record() runs on every allowed message too and that message is already
// the envelope's primary line.
func (c *Coordinator) recentHistoryLines(chatID, excludeMessageID string) string {
	events := c.history.recent(chatID)
	lines := make([]string, 0, len(events))
	for _, event := range events {
		if event.MessageID == excludeMessageID {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", envelopeTimestamp(event.CreateTimeMs), envelopeSender(event.SenderID), event.Content))
	}
	if len(lines) == 0 {
		return ""
	}
	return "近期群聊上下文：\n" + strings.Join(lines, "\n")
}
