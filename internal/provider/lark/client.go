package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/alfadb/openclaw/internal/provider"
	"github.com/alfadb/openclaw/internal/richcontent"
)

// Client implements provider.Provider for a single Lark app, grounded on
// the teacher's REST call shape in internal/scheduler/notifier.go and
// internal/infra/tools/builtin/larktools/send_message.go: build a typed
// request via the SDK's fluent builders, call the matching *lark.Client.Im
// method, and check resp.Success() before trusting resp.Data.
type Client struct {
	accountID string
	sdk       *lark.Client
}

// New constructs a Client for a single Lark app.
func New(accountID string, cfg Config) *Client {
	var opts []lark.ClientOptionFunc
	if domain := strings.TrimSpace(cfg.BaseDomain); domain != "" {
		opts = append(opts, lark.WithOpenBaseUrl(domain))
	}
	return &Client{
		accountID: accountID,
		sdk:       lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
	}
}

var _ provider.Provider = (*Client)(nil)

func (c *Client) AddReaction(ctx context.Context, messageID, emojiType, accountID string) (string, error) {
	req := larkim.NewCreateMessageReactionReqBuilder().
		MessageId(messageID).
		Body(larkim.NewCreateMessageReactionReqBodyBuilder().
			ReactionType(larkim.NewEmojiBuilder().EmojiType(emojiType).Build()).
			Build()).
		Build()

	resp, err := c.sdk.Im.MessageReaction.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("lark add reaction: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("lark add reaction: code=%d msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.ReactionId == nil {
		return "", fmt.Errorf("lark add reaction: empty response")
	}
	return *resp.Data.ReactionId, nil
}

func (c *Client) RemoveReaction(ctx context.Context, messageID, reactionID, accountID string) error {
	req := larkim.NewDeleteMessageReactionReqBuilder().
		MessageId(messageID).
		ReactionId(reactionID).
		Build()

	resp, err := c.sdk.Im.MessageReaction.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("lark remove reaction: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark remove reaction: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

func (c *Client) ListReactions(ctx context.Context, messageID, emojiType, accountID string) ([]provider.Reaction, error) {
	req := larkim.NewListMessageReactionReqBuilder().
		MessageId(messageID).
		ReactionType(emojiType).
		PageSize(50).
		Build()

	resp, err := c.sdk.Im.MessageReaction.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lark list reactions: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("lark list reactions: code=%d msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil {
		return nil, nil
	}
	out := make([]provider.Reaction, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		if item == nil {
			continue
		}
		r := provider.Reaction{}
		if item.ReactionId != nil {
			r.ReactionID = *item.ReactionId
		}
		if item.Operator != nil && item.Operator.OperatorType != nil {
			r.OperatorType = *item.Operator.OperatorType
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, opts provider.SendOptions) (provider.SendResult, error) {
	msgType, content := renderOutboundContent(opts.Text)

	if strings.TrimSpace(opts.ReplyToMessageID) != "" {
		req := larkim.NewReplyMessageReqBuilder().
			MessageId(opts.ReplyToMessageID).
			Body(larkim.NewReplyMessageReqBodyBuilder().
				MsgType(msgType).
				Content(content).
				Build()).
			Build()

		resp, err := c.sdk.Im.Message.Reply(ctx, req)
		if err != nil {
			return provider.SendResult{}, fmt.Errorf("lark reply message: %w", err)
		}
		if !resp.Success() {
			return provider.SendResult{}, fmt.Errorf("lark reply message: code=%d msg=%s", resp.Code, resp.Msg)
		}
		var messageId *string
		if resp.Data != nil {
			messageId = resp.Data.MessageId
		}
		return sendResultFromMessageId(messageId, opts.To), nil
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(opts.To).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.sdk.Im.Message.Create(ctx, req)
	if err != nil {
		return provider.SendResult{}, fmt.Errorf("lark create message: %w", err)
	}
	if !resp.Success() {
		return provider.SendResult{}, fmt.Errorf("lark create message: code=%d msg=%s", resp.Code, resp.Msg)
	}
	var messageId *string
	if resp.Data != nil {
		messageId = resp.Data.MessageId
	}
	return sendResultFromMessageId(messageId, opts.To), nil
}

func sendResultFromMessageId(messageId *string, chatID string) provider.SendResult {
	result := provider.SendResult{ChatID: chatID}
	if messageId != nil {
		result.MessageID = *messageId
	}
	return result
}

func (c *Client) FetchMessage(ctx context.Context, messageID, accountID string) (provider.Message, error) {
	req := larkim.NewGetMessageReqBuilder().MessageId(messageID).Build()

	resp, err := c.sdk.Im.Message.Get(ctx, req)
	if err != nil {
		return provider.Message{}, fmt.Errorf("lark fetch message: %w", err)
	}
	if !resp.Success() {
		return provider.Message{}, fmt.Errorf("lark fetch message: code=%d msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return provider.Message{}, fmt.Errorf("lark fetch message: not found")
	}
	item := resp.Data.Items[0]
	out := provider.Message{MessageID: messageID}
	if item.ChatId != nil {
		out.ChatID = *item.ChatId
	}
	if item.Sender != nil && item.Sender.Id != nil {
		out.SenderID = *item.Sender.Id
	}
	if item.Body != nil && item.MsgType != nil {
		out.Text = extractTextContent(bodyContent(item), *item.MsgType)
	}
	return out, nil
}

func bodyContent(item *larkim.Message) string {
	if item.Body == nil || item.Body.Content == nil {
		return ""
	}
	return *item.Body.Content
}

// textPayload builds the JSON content payload for a Lark text message.
func textPayload(text string) string {
	payload, _ := json.Marshal(map[string]string{"text": text})
	return string(payload)
}

var markdownMarkers = []string{"**", "##", "](", "```", "\n- ", "\n1. ", "> "}

// renderOutboundContent picks the Lark message type and content payload for
// text: plain status strings (task acks, reactions-as-text) go out as
// "text" so they render identically to the teacher's own plain replies,
// while markdown-bearing agent replies render as a "post" via
// richcontent.RenderPost so headings, links, and code blocks survive.
func renderOutboundContent(text string) (msgType, content string) {
	for _, marker := range markdownMarkers {
		if strings.Contains(text, marker) {
			return "post", richcontent.RenderPost(text)
		}
	}
	return "text", textPayload(text)
}
