// Package statusreactor implements the idempotent "replace one reaction
// with another" operation used to paint task status on a provider message
// (component B, spec.md §4.2).
package statusreactor

import (
	"context"
	"fmt"

	"github.com/alfadb/openclaw/internal/inflight"
	"github.com/alfadb/openclaw/internal/platform/logging"
	"github.com/alfadb/openclaw/internal/provider"
)

// EmojiType constants for the status mapping in spec.md §4.4.
const (
	EmojiReceived = "GLANCE"     // 👀
	EmojiQueued   = "ONE_SECOND" // ⏱
	EmojiWorking  = "HAMMER"     // 🔨
	EmojiWaiting  = "ALARM"      // ⏰
	EmojiDone     = "DONE"       // ✅
	EmojiError    = "ERROR"      // ⚠ failed/interrupted

	// EmojiTyping marks a transient in-progress reaction some provider
	// clients paint while streaming a reply; boot reconciliation cleans up
	// any instance of it left lingering on a task's anchor.
	EmojiTyping = "TYPING"
)

// StateEmoji maps an InFlightTask state to its displayed status emoji.
func StateEmoji(state inflight.State) string {
	switch state {
	case inflight.StateReceived:
		return EmojiReceived
	case inflight.StateQueued:
		return EmojiQueued
	case inflight.StateWorking:
		return EmojiWorking
	case inflight.StateWaiting:
		return EmojiWaiting
	case inflight.StateDone:
		return EmojiDone
	case inflight.StateFailed, inflight.StateInterrupted:
		return EmojiError
	default:
		return ""
	}
}

// ReplaceRequest is the input to Reactor.Replace.
type ReplaceRequest struct {
	MessageID     string
	AccountID     string
	NextEmojiType string
	Prev          *inflight.Reaction // optional: the currently-displayed reaction
}

// Reactor performs the add-then-best-effort-remove reaction replacement.
type Reactor struct {
	client provider.Provider
	logger logging.Logger
}

// New creates a Reactor backed by client.
func New(client provider.Provider, logger logging.Logger) *Reactor {
	return &Reactor{client: client, logger: logging.OrNop(logger)}
}

// Replace adds req.NextEmojiType to req.MessageID, then best-effort removes
// req.Prev if it names a distinct reaction id from the one just added.
//
// The distinctness check matters: providers may return the same reactionId
// for repeated AddReaction calls with the same (message, emoji) pair, and
// removing it in that case would clear the status the caller just painted.
func (r *Reactor) Replace(ctx context.Context, req ReplaceRequest) (inflight.Reaction, error) {
	reactionID, err := r.client.AddReaction(ctx, req.MessageID, req.NextEmojiType, req.AccountID)
	if err != nil {
		return inflight.Reaction{}, fmt.Errorf("statusreactor: add reaction %s: %w", req.NextEmojiType, err)
	}

	next := inflight.Reaction{EmojiType: req.NextEmojiType, ReactionID: reactionID}

	if req.Prev != nil && req.Prev.ReactionID != "" && req.Prev.ReactionID != reactionID {
		if err := r.client.RemoveReaction(ctx, req.MessageID, req.Prev.ReactionID, req.AccountID); err != nil {
			// Best-effort: the prior emoji may linger, but it is overwritten
			// on the next transition, and only one stale emoji can ever
			// accumulate.
			r.logger.Warn("statusreactor: remove prev reaction %s failed: %v", req.Prev.ReactionID, err)
		}
	}

	return next, nil
}
