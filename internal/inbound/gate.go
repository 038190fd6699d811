package inbound

import (
	"context"
	"fmt"

	"github.com/alfadb/openclaw/internal/platform/logging"
	"github.com/alfadb/openclaw/internal/provider"
)

// Reason names why an event was rejected by Check.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonDuplicateMemory     Reason = "duplicate_in_memory"
	ReasonDuplicatePersistent Reason = "duplicate_persistent"
	ReasonStale               Reason = "stale"
)

// Event is the minimal shape InboundGate needs from a provider delivery.
type Event struct {
	AccountID string
	ChatID    string
	MessageID string
	SentAtMs  int64
}

// Config controls the persistent stale-drop path (spec.md §6 options).
type Config struct {
	StaleDropEnabled bool
	StaleDropReply   bool
	SkewWindowMs     int64
	RecentIDsLimit   int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		StaleDropEnabled: true,
		StaleDropReply:   true,
		SkewWindowMs:     5000,
		RecentIDsLimit:   defaultRecentIDsLimit,
	}
}

// Decision is the outcome of Gate.Check.
type Decision struct {
	Proceed          bool
	Reason           Reason
	PriorWatermarkMs int64 // valid when Reason == ReasonStale
}

// Gate combines the in-memory dedup cache with the persistent per-chat
// watermark+ring described in spec.md §4.3.
type Gate struct {
	dedup  *Dedup
	store  *Store
	cfg    Config
	sender provider.Provider
	logger logging.Logger
}

// New creates a Gate. sender may be nil if stale-reply notices are disabled.
func New(store *Store, cfg Config, sender provider.Provider, logger logging.Logger) *Gate {
	if cfg.RecentIDsLimit <= 0 {
		cfg.RecentIDsLimit = defaultRecentIDsLimit
	}
	return &Gate{
		dedup:  NewDedup(),
		store:  store,
		cfg:    cfg,
		sender: sender,
		logger: logging.OrNop(logger),
	}
}

// Dedup exposes the in-memory layer so callers that need to run it as a
// separate early step (TaskCoordinator's step 1, before event parsing) can
// do so without going through the persistent layer first.
func (g *Gate) Dedup() *Dedup {
	return g.dedup
}

// Check runs both dedup layers and the stale-drop check for event, in the
// order specified by spec.md §4.3. On a stale drop with replies enabled it
// synchronously sends the out-of-order notice.
func (g *Gate) Check(ctx context.Context, event Event) (Decision, error) {
	if !g.dedup.TryRecord(event.MessageID) {
		return Decision{Reason: ReasonDuplicateMemory}, nil
	}
	return g.CheckPersistent(ctx, event)
}

// CheckPersistent runs only the persistent ring+stale-drop layer, for
// callers that already ran the in-memory layer as an earlier, separate
// step (TaskCoordinator's step 3, after event parsing).
func (g *Gate) CheckPersistent(ctx context.Context, event Event) (Decision, error) {
	var decision Decision
	_, err := g.store.Mutate(event.AccountID, event.ChatID, func(s State) State {
		if event.MessageID != "" && s.Contains(event.MessageID) {
			decision = Decision{Reason: ReasonDuplicatePersistent}
			return s
		}

		if g.cfg.StaleDropEnabled && event.SentAtMs < s.LastProcessedSentAtMs-g.cfg.SkewWindowMs {
			decision = Decision{Reason: ReasonStale, PriorWatermarkMs: s.LastProcessedSentAtMs}
			s.RecentMessageIDs = pushID(s.RecentMessageIDs, event.MessageID, g.cfg.RecentIDsLimit)
			return s
		}

		decision = Decision{Proceed: true}
		s.RecentMessageIDs = pushID(s.RecentMessageIDs, event.MessageID, g.cfg.RecentIDsLimit)
		if event.SentAtMs > s.LastProcessedSentAtMs {
			s.LastProcessedSentAtMs = event.SentAtMs
		}
		s.UpdatedAtMs = event.SentAtMs
		return s
	})
	if err != nil {
		// Persistence failures never block message handling; treat as if
		// the event were new so a storage hiccup can't wedge delivery.
		g.logger.Warn("inbound: gate persist failed for %s/%s: %v", event.AccountID, event.ChatID, err)
		return Decision{Proceed: true}, nil
	}

	if decision.Reason == ReasonStale {
		g.notifyStale(ctx, event, decision.PriorWatermarkMs)
	}
	return decision, nil
}

func (g *Gate) notifyStale(ctx context.Context, event Event, priorWatermarkMs int64) {
	if !g.cfg.StaleDropReply || g.sender == nil {
		return
	}
	text := fmt.Sprintf(
		"过期消息，被忽略（sentAtMs=%d, lastProcessedSentAtMs=%d, reason=out_of_order_delivery）",
		event.SentAtMs, priorWatermarkMs,
	)
	_, err := g.sender.SendMessage(ctx, provider.SendOptions{
		To:               event.ChatID,
		Text:             text,
		ReplyToMessageID: event.MessageID,
		AccountID:        event.AccountID,
	})
	if err != nil {
		g.logger.Warn("inbound: stale notice send failed for %s: %v", event.MessageID, err)
	}
}
