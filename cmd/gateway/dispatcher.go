package main

import (
	"context"

	"github.com/alfadb/openclaw/internal/agent"
	"github.com/alfadb/openclaw/internal/platform/logging"
)

// unconfiguredDispatcher satisfies agent.Dispatcher when no agent runtime
// has been wired. The agent runtime itself is out of scope for this
// gateway (spec.md §1); this stub lets the gateway start and exercise the
// rest of the pipeline (inbound gating, status reactions, announcements)
// against a fixed reply instead of refusing to boot.
type unconfiguredDispatcher struct {
	logger logging.Logger
}

func (d unconfiguredDispatcher) DispatchReplyFromConfig(_ context.Context, _ agent.Config, opts agent.ReplyOptions, callbacks agent.StatusCallbacks) (agent.DispatchResult, error) {
	d.logger.Warn("dispatcher: no agent runtime configured, echoing a placeholder reply for session %s", opts.SessionKey)
	if callbacks.OnReplyStart != nil {
		callbacks.OnReplyStart()
	}
	result := agent.DispatchResult{
		QueuedFinal: true,
		Counts:      agent.Counts{Final: 1},
		FinalText:   "没有配置 agent 运行时，这是一条占位回复。",
	}
	if callbacks.OnIdle != nil {
		callbacks.OnIdle(result)
	}
	return result, nil
}
