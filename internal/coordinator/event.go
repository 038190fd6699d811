package coordinator

import (
	"regexp"
	"strings"

	"github.com/alfadb/openclaw/internal/inflight"
)

// InboundEvent is the Provider-neutral shape TaskCoordinator parses a raw
// provider delivery into (spec.md §4.4 step 2), generalized from the
// teacher's Lark-specific incomingMessage/P2MessageReceiveV1 handling
// (internal/delivery/channels/lark/message_handler.go) so the coordinator
// itself never imports a provider SDK.
type InboundEvent struct {
	AccountID    string
	ChatID       string
	MessageID    string
	SenderID     string
	ChatType     inflight.ChatType
	CreateTimeMs int64
	Content      string
	Mentions     []string
	RootID       string
	ParentID     string
}

// StripBotMentions removes bot @-mention placeholders from content, per
// spec.md §4.4 step 2. Mentions of other (non-bot) users are left intact;
// callers identify the bot's own mention key(s) and pass them in.
func StripBotMentions(content string, botMentionKeys []string) string {
	trimmed := content
	for _, key := range botMentionKeys {
		if key == "" {
			continue
		}
		trimmed = strings.ReplaceAll(trimmed, key, "")
	}
	return strings.TrimSpace(trimmed)
}

var resumePattern = regexp.MustCompile(`(?i)^(继续|continue|resume)`)

// IsResumeRequest reports whether content matches the fixed resume-intent
// phrases recognized by spec.md §4.4 step 5.
func IsResumeRequest(content string) bool {
	return resumePattern.MatchString(strings.TrimSpace(content))
}
