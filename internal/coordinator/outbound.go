package coordinator

import (
	"context"

	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/provider"
)

// OnOutboundReply implements spec.md §8 scenario 7: any outbound send that
// replies to a waiting task's anchor auto-finalizes that task to done. This
// is how AnnounceQueue's followup sends feed back into the state machine.
// replyText is the followup's own text, recorded as the task's answer trace
// (SPEC_FULL §3) since this send is, by definition, the task's final answer.
func (c *Coordinator) OnOutboundReply(ctx context.Context, accountID, replyToMessageID, replyText string) {
	if replyToMessageID == "" {
		return
	}
	doc, err := c.store.View(accountID)
	if err != nil {
		return
	}
	for _, task := range doc.Tasks {
		if task.MessageID == replyToMessageID && task.State == inflight.StateWaiting {
			c.finishDone(ctx, accountID, task, replyText, 0)
			return
		}
	}
}

// outboundSender decorates a provider.Provider so every successful
// SendMessage call is observed by OnOutboundReply, without requiring every
// outbound call site (coordinator replies, AnnounceQueue drains) to
// remember to call it themselves.
type outboundSender struct {
	provider.Provider
	accountID   string
	coordinator *Coordinator
}

func (s outboundSender) SendMessage(ctx context.Context, opts provider.SendOptions) (provider.SendResult, error) {
	result, err := s.Provider.SendMessage(ctx, opts)
	if err == nil {
		accountID := opts.AccountID
		if accountID == "" {
			accountID = s.accountID
		}
		s.coordinator.OnOutboundReply(ctx, accountID, opts.ReplyToMessageID, opts.Text)
	}
	return result, err
}

// WrapSender decorates sender so its successful sends auto-finalize waiting
// tasks, for callers (e.g. AnnounceQueue) that hold their own provider
// reference instead of going through the Coordinator.
func (c *Coordinator) WrapSender(accountID string, sender provider.Provider) provider.Provider {
	return outboundSender{Provider: sender, accountID: accountID, coordinator: c}
}
