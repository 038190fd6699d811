// Package agent names the collaborator contract TaskCoordinator dispatches
// work through. The agent runtime itself is out of scope (spec.md §1); this
// package only defines the seam.
package agent

import "context"

// ReplyOptions carries the inbound envelope the agent should respond to.
type ReplyOptions struct {
	SessionKey       string
	Prompt           string
	QuotedText       string
	SenderLabel      string
	MentionTargets   []string
	ReplyToMessageID string
}

// Config is opaque agent routing/model configuration resolved by the
// caller; TaskCoordinator passes it through unmodified.
type Config struct {
	Route string
	Model string
}

// Counts reports how many replies of each kind were produced during one
// dispatch.
type Counts struct {
	Final    int
	Followup int
}

// DispatchResult is returned once a dispatch reaches idle. FinalText and
// TokensUsed are set by the agent on completion, best-effort, so the
// coordinator can surface a trace of the last answer after the task record
// itself is removed.
type DispatchResult struct {
	QueuedFinal bool
	Counts      Counts
	FinalText   string
	TokensUsed  int
}

// StatusCallbacks fire on the event loop as a dispatch progresses.
type StatusCallbacks struct {
	OnReplyStart func()
	OnIdle       func(DispatchResult)
}

// Dispatcher is the minimal contract TaskCoordinator needs from the agent
// runtime: admit a reply request and observe its lifecycle via callbacks,
// mirroring the teacher's dispatchReplyFromConfig shape (spec.md §6).
type Dispatcher interface {
	DispatchReplyFromConfig(ctx context.Context, cfg Config, opts ReplyOptions, callbacks StatusCallbacks) (DispatchResult, error)
}
