package coordinator

import (
	"context"

	"github.com/alfadb/openclaw/internal/announce"
	"github.com/alfadb/openclaw/internal/provider"
)

// Announce enqueues an agent-initiated follow-up through AnnounceQueue
// (component E), binding its eventual send to accountID/chatID/anchor.
// The send closure goes through c.sender, which New() already wrapped via
// WrapSender, so a successful drain automatically finalizes a waiting
// task anchored on replyToMessageID (spec.md §8 scenario 7) exactly like
// a direct coordinator reply.
func (c *Coordinator) Announce(key string, item announce.Item, settings announce.Settings, accountID, chatID, replyToMessageID string) {
	if c.announce == nil {
		return
	}
	send := func(ctx context.Context, it announce.Item) error {
		_, err := c.sender.SendMessage(ctx, provider.SendOptions{
			To:               chatID,
			Text:             it.Prompt,
			ReplyToMessageID: replyToMessageID,
			AccountID:        accountID,
		})
		return err
	}
	c.announce.Enqueue(key, item, settings, send)
}
