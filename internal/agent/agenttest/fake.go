// Package agenttest provides a configurable fake agent.Dispatcher for
// TaskCoordinator tests, grounded on the teacher's RecordingMessenger style
// (internal/channels/lark/recording_messenger.go) applied to the agent seam.
package agenttest

import (
	"context"
	"sync"

	"github.com/alfadb/openclaw/internal/agent"
)

// Call records one DispatchReplyFromConfig invocation.
type Call struct {
	Cfg  agent.Config
	Opts agent.ReplyOptions
}

// Fake is a scripted agent.Dispatcher.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	// Result is returned by the next dispatch (after firing callbacks).
	// Defaults to a single final reply.
	Result agent.DispatchResult
	// Err, when set, is returned instead of Result and no callbacks fire.
	Err error
	// FireReplyStart controls whether OnReplyStart is invoked before idle.
	FireReplyStart bool
}

// New creates a Fake that reports one queued final reply by default.
func New() *Fake {
	return &Fake{Result: agent.DispatchResult{QueuedFinal: true, Counts: agent.Counts{Final: 1}}, FireReplyStart: true}
}

func (f *Fake) DispatchReplyFromConfig(_ context.Context, cfg agent.Config, opts agent.ReplyOptions, callbacks agent.StatusCallbacks) (agent.DispatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Cfg: cfg, Opts: opts})
	err := f.Err
	result := f.Result
	fireStart := f.FireReplyStart
	f.mu.Unlock()

	if err != nil {
		return agent.DispatchResult{}, err
	}
	if fireStart && callbacks.OnReplyStart != nil {
		callbacks.OnReplyStart()
	}
	if callbacks.OnIdle != nil {
		callbacks.OnIdle(result)
	}
	return result, nil
}

// Calls returns a snapshot of recorded dispatch calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

var _ agent.Dispatcher = (*Fake)(nil)
