package coordinator

import (
	"context"
	"strings"
	"testing"

	"github.com/alfadb/openclaw/internal/provider"
)

func TestBuildEnvelope_WrapsChannelSenderTimestamp(t *testing.T) {
	h := newHarness(t, directPolicy())
	ctx := context.Background()

	if err := h.coord.HandleInbound(ctx, directEvent("msg-1", "hello there", 1000)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	calls := h.dispatcher.Calls()
	if len(calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(calls))
	}
	prompt := calls[0].Opts.Prompt
	if !strings.Contains(prompt, "user(user1)") {
		t.Fatalf("prompt missing sender label: %q", prompt)
	}
	if !strings.Contains(prompt, "chat1") {
		t.Fatalf("prompt missing channel: %q", prompt)
	}
	if !strings.Contains(prompt, "hello there") {
		t.Fatalf("prompt missing content: %q", prompt)
	}
	if !strings.Contains(prompt, "[1970-01-01 00:00:01]") {
		t.Fatalf("prompt missing timestamp: %q", prompt)
	}
	if calls[0].Opts.SenderLabel != "user(user1)" {
		t.Fatalf("sender label = %q, want user(user1)", calls[0].Opts.SenderLabel)
	}
}

func TestBuildEnvelope_PrependsQuotedMessage(t *testing.T) {
	h := newHarness(t, directPolicy())
	ctx := context.Background()
	h.sender.FetchMessageResult = provider.Message{Text: "original question"}

	event := directEvent("msg-1", "follow up", 1000)
	event.ParentID = "parent-msg"
	if err := h.coord.HandleInbound(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	fetches := h.sender.CallsByMethod("FetchMessage")
	if len(fetches) != 1 || fetches[0].MessageID != "parent-msg" {
		t.Fatalf("expected one FetchMessage call for parent-msg, got %+v", fetches)
	}

	calls := h.dispatcher.Calls()
	if len(calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Opts.Prompt, "original question") {
		t.Fatalf("prompt missing quoted text: %q", calls[0].Opts.Prompt)
	}
	if calls[0].Opts.QuotedText != "original question" {
		t.Fatalf("quoted text = %q", calls[0].Opts.QuotedText)
	}
}

func TestBuildEnvelope_FallsBackToRootIDWhenNoParent(t *testing.T) {
	h := newHarness(t, directPolicy())
	ctx := context.Background()
	h.sender.FetchMessageResult = provider.Message{Text: "root text"}

	event := directEvent("msg-1", "follow up", 1000)
	event.RootID = "root-msg"
	if err := h.coord.HandleInbound(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	fetches := h.sender.CallsByMethod("FetchMessage")
	if len(fetches) != 1 || fetches[0].MessageID != "root-msg" {
		t.Fatalf("expected FetchMessage on root-msg, got %+v", fetches)
	}
}

func TestBuildEnvelope_MentionTargetsHintExcludesBot(t *testing.T) {
	h := newHarnessWithBotKeys(t, groupPolicy(), []string{"@_user_1"})
	ctx := context.Background()

	event := groupEvent("msg-1", "@_user_1 @_user_2 look at this", 1000)
	event.Mentions = []string{"@_user_1", "@_user_2"}
	if err := h.coord.HandleInbound(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	calls := h.dispatcher.Calls()
	if len(calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(calls))
	}
	if len(calls[0].Opts.MentionTargets) != 1 || calls[0].Opts.MentionTargets[0] != "@_user_2" {
		t.Fatalf("mention targets = %+v, want [@_user_2]", calls[0].Opts.MentionTargets)
	}
	if !strings.Contains(calls[0].Opts.Prompt, "mention targets: @_user_2") {
		t.Fatalf("prompt missing mention hint: %q", calls[0].Opts.Prompt)
	}
}

func TestBuildEnvelope_ConsumesRecordedGroupHistory(t *testing.T) {
	h := newHarnessWithBotKeys(t, PolicyConfig{AllowGroups: true, RequireMention: true}, []string{"@_bot"})
	ctx := context.Background()

	gatedOut := groupEvent("msg-1", "just chatting, no mention", 1000)
	if err := h.coord.HandleInbound(ctx, gatedOut); err != nil {
		t.Fatalf("gated-out message: %v", err)
	}
	if got := len(h.dispatcher.Calls()); got != 0 {
		t.Fatalf("dispatch calls after gated-out message = %d, want 0", got)
	}

	mention := groupEvent("msg-2", "@_bot what did they say?", 2000)
	mention.Mentions = []string{"@_bot"}
	if err := h.coord.HandleInbound(ctx, mention); err != nil {
		t.Fatalf("mention: %v", err)
	}

	calls := h.dispatcher.Calls()
	if len(calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(calls))
	}
	prompt := calls[0].Opts.Prompt
	if !strings.Contains(prompt, "just chatting, no mention") {
		t.Fatalf("prompt missing recorded group history: %q", prompt)
	}
	if !strings.Contains(prompt, "what did they say?") {
		t.Fatalf("prompt missing current message: %q", prompt)
	}
}

func newHarnessWithBotKeys(t *testing.T, policy PolicyConfig, botKeys []string) *harness {
	t.Helper()
	h := newHarness(t, policy)
	h.coord.botKeys = botKeys
	return h
}

func groupEvent(messageID, content string, sentAtMs int64) InboundEvent {
	return InboundEvent{
		AccountID:    testAccountID,
		ChatID:       "group1",
		MessageID:    messageID,
		SenderID:     "user1",
		ChatType:     "group",
		CreateTimeMs: sentAtMs,
		Content:      content,
	}
}
