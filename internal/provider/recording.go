package provider

import (
	"context"
	"fmt"
	"sync"
)

// Call records a single invocation made through a Recording provider.
type Call struct {
	Method     string // "AddReaction", "RemoveReaction", "ListReactions", "SendMessage", "FetchMessage"
	MessageID  string
	ReactionID string
	EmojiType  string
	AccountID  string
	SendOpts   SendOptions
}

// Recording implements Provider by recording every call for later
// assertion in tests, grounded on the teacher's RecordingMessenger
// (internal/channels/lark/recording_messenger.go).
type Recording struct {
	mu    sync.Mutex
	calls []Call

	// NextReactionID, when non-empty, is returned by the next AddReaction
	// call and then cleared. If empty, a sequential "rx_N" id is generated.
	NextReactionID string
	// SameReactionIDForEmoji makes AddReaction idempotent per emoji type,
	// returning the same reaction id for repeated calls with the same
	// (messageID, emojiType) pair — modeling provider-side dedup.
	SameReactionIDForEmoji bool

	// NextMessageID, when non-empty, is returned by the next SendMessage
	// call and then cleared.
	NextMessageID string

	// NextError, when set, is returned by the next call (any method) and
	// then cleared.
	NextError error

	// FetchMessageResult is returned by FetchMessage.
	FetchMessageResult Message

	idempotentReactions map[string]string
	sendCount           int
	reactionCount       int
}

// New creates an empty Recording provider.
func New() *Recording {
	return &Recording{idempotentReactions: make(map[string]string)}
}

func (r *Recording) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recording) popError() error {
	if r.NextError != nil {
		err := r.NextError
		r.NextError = nil
		return err
	}
	return nil
}

func (r *Recording) AddReaction(_ context.Context, messageID, emojiType, accountID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "AddReaction", MessageID: messageID, EmojiType: emojiType, AccountID: accountID})
	if err := r.popError(); err != nil {
		return "", err
	}
	if r.SameReactionIDForEmoji {
		key := messageID + "|" + emojiType
		if id, ok := r.idempotentReactions[key]; ok {
			return id, nil
		}
		id := r.nextReactionID()
		r.idempotentReactions[key] = id
		return id, nil
	}
	return r.nextReactionID(), nil
}

func (r *Recording) nextReactionID() string {
	if r.NextReactionID != "" {
		id := r.NextReactionID
		r.NextReactionID = ""
		return id
	}
	r.reactionCount++
	return fmt.Sprintf("rx_%d", r.reactionCount)
}

func (r *Recording) RemoveReaction(_ context.Context, messageID, reactionID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "RemoveReaction", MessageID: messageID, ReactionID: reactionID, AccountID: accountID})
	return r.popError()
}

func (r *Recording) ListReactions(_ context.Context, messageID, emojiType, accountID string) ([]Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "ListReactions", MessageID: messageID, EmojiType: emojiType, AccountID: accountID})
	return nil, r.popError()
}

func (r *Recording) SendMessage(_ context.Context, opts SendOptions) (SendResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "SendMessage", AccountID: opts.AccountID, SendOpts: opts})
	if err := r.popError(); err != nil {
		return SendResult{}, err
	}
	id := r.NextMessageID
	if id == "" {
		r.sendCount++
		id = fmt.Sprintf("om_sent_%d", r.sendCount)
	}
	r.NextMessageID = ""
	return SendResult{MessageID: id, ChatID: opts.To}, nil
}

func (r *Recording) FetchMessage(_ context.Context, messageID, accountID string) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "FetchMessage", MessageID: messageID, AccountID: accountID})
	if err := r.popError(); err != nil {
		return Message{}, err
	}
	return r.FetchMessageResult, nil
}

// Calls returns a snapshot of all recorded calls.
func (r *Recording) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsByMethod returns calls filtered by method name.
func (r *Recording) CallsByMethod(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

var _ Provider = (*Recording)(nil)
