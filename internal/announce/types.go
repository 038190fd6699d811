// Package announce implements AnnounceQueue (component E): a keyed,
// debounced delivery queue for agent-initiated follow-up messages, with
// per-key capacity caps, drop policies, staleness eviction, and
// retry-safe draining.
package announce

import "context"

// Mode selects how a key's pending items are delivered.
type Mode string

const (
	// ModeFollowup delivers items one at a time, preserving enqueue order.
	ModeFollowup Mode = "followup"
	// ModeCollect coalesces pending items into a single combined prompt.
	ModeCollect Mode = "collect"
)

// DropPolicy selects which item is dropped once a key's queue reaches its
// cap: the oldest (summarized or not) or the incoming one.
type DropPolicy string

const (
	DropSummarize DropPolicy = "summarize"
	DropOldest    DropPolicy = "oldest"
	DropNewest    DropPolicy = "newest"
)

// Settings are a key's mutable drain configuration, refreshed on every
// enqueue call (spec: "update mutable settings and the send callback").
type Settings struct {
	Mode       Mode
	DebounceMs int64
	Cap        int
	DropPolicy DropPolicy
	MaxAgeMs   int64 // 0 disables staleness eviction
}

// DefaultSettings returns the documented defaults: followup mode, 1s
// debounce, a 20-item cap, summarize drop policy, and a 10 minute
// staleness window.
func DefaultSettings() Settings {
	return Settings{
		Mode:       ModeFollowup,
		DebounceMs: 1000,
		Cap:        20,
		DropPolicy: DropSummarize,
		MaxAgeMs:   10 * 60 * 1000,
	}
}

// Item is one queued announcement.
type Item struct {
	AnnounceID   string
	Prompt       string
	SummaryLine  string
	EnqueuedAtMs int64
	SessionKey   string
	Origin       string
	OriginKey    string
	HighPriority bool
}

// SendFunc delivers one item. Its error return drives the drain's
// retry-without-loss behavior: a non-nil error leaves the item queued.
type SendFunc func(ctx context.Context, item Item) error
