package lark

import (
	"encoding/json"
	"strconv"
	"strings"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/alfadb/openclaw/internal/coordinator"
	"github.com/alfadb/openclaw/internal/inflight"
)

// parseInboundEvent converts a raw P2MessageReceiveV1 into the Provider-
// neutral coordinator.InboundEvent, grounded on the teacher's
// parseIncomingMessage in internal/delivery/channels/lark/gateway.go.
// Returns ok=false for unsupported message types, disallowed chat kinds,
// or empty content — the caller should drop the event silently.
func (l *Listener) parseInboundEvent(accountID string, event *larkim.P2MessageReceiveV1) (coordinator.InboundEvent, bool) {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return coordinator.InboundEvent{}, false
	}
	raw := event.Event.Message

	msgType := strings.ToLower(strings.TrimSpace(deref(raw.MessageType)))
	if msgType != "text" && msgType != "post" {
		return coordinator.InboundEvent{}, false
	}

	chatType := strings.ToLower(strings.TrimSpace(deref(raw.ChatType)))
	isGroup := chatType != "" && chatType != "p2p"
	if isGroup && !l.cfg.AllowGroups {
		return coordinator.InboundEvent{}, false
	}
	if !isGroup && !l.cfg.AllowDirect {
		return coordinator.InboundEvent{}, false
	}

	content := extractTextContent(deref(raw.Content), msgType)
	if strings.TrimSpace(content) == "" {
		return coordinator.InboundEvent{}, false
	}

	chatID := deref(raw.ChatId)
	messageID := deref(raw.MessageId)
	if chatID == "" || messageID == "" {
		return coordinator.InboundEvent{}, false
	}

	kind := inflight.ChatDirect
	if isGroup {
		kind = inflight.ChatGroup
	}

	return coordinator.InboundEvent{
		AccountID:    accountID,
		ChatID:       chatID,
		MessageID:    messageID,
		SenderID:     extractSenderID(event),
		ChatType:     kind,
		CreateTimeMs: parseCreateTimeMs(deref(raw.CreateTime)),
		Content:      content,
		Mentions:     extractMentionKeys(raw.Mentions),
		RootID:       deref(raw.RootId),
		ParentID:     deref(raw.ParentId),
	}, true
}

func parseCreateTimeMs(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func extractSenderID(event *larkim.P2MessageReceiveV1) string {
	if event == nil || event.Event == nil || event.Event.Sender == nil || event.Event.Sender.SenderId == nil {
		return ""
	}
	id := event.Event.Sender.SenderId
	if v := deref(id.OpenId); v != "" {
		return v
	}
	if v := deref(id.UserId); v != "" {
		return v
	}
	return deref(id.UnionId)
}

func extractMentionKeys(mentions []*larkim.MentionEvent) []string {
	if len(mentions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if m == nil {
			continue
		}
		if key := strings.TrimSpace(deref(m.Key)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// extractTextContent flattens a Lark text or post message content JSON
// string into plain text. Post messages are reduced to their text runs in
// paragraph order, since the coordinator only reasons about plain text.
func extractTextContent(raw, msgType string) string {
	if raw == "" {
		return ""
	}
	switch msgType {
	case "post":
		return extractPostText(raw)
	default:
		var parsed struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return strings.TrimSpace(raw)
		}
		return strings.TrimSpace(parsed.Text)
	}
}

func extractPostText(raw string) string {
	var parsed struct {
		Title   string              `json:"title"`
		Content [][]json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return strings.TrimSpace(raw)
	}
	var b strings.Builder
	if strings.TrimSpace(parsed.Title) != "" {
		b.WriteString(parsed.Title)
		b.WriteString("\n")
	}
	for _, line := range parsed.Content {
		for _, rawElem := range line {
			var elem struct {
				Tag  string `json:"tag"`
				Text string `json:"text"`
			}
			if err := json.Unmarshal(rawElem, &elem); err != nil {
				continue
			}
			if elem.Tag == "text" || elem.Tag == "a" {
				b.WriteString(elem.Text)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
