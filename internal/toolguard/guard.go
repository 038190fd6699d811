// Package toolguard implements the transcript-append interceptor that pairs
// assistant tool calls with tool results, caps their size, and annotates
// recoverable tool errors before they reach persistence (component F,
// spec.md §4.6). It wraps a session.Manager rather than monkey-patching it
// (spec.md §9 design note).
package toolguard

import (
	"sync"

	"github.com/alfadb/openclaw/internal/session"
)

// HardMaxToolResultChars is the HARD_MAX_TOOL_RESULT_CHARS option from
// spec.md §6: the hard cap applied across a tool result's text content
// before persistence. Overridable at startup via internal/config; defaults
// to the teacher's own constant.
var HardMaxToolResultChars = 20000

const truncationSuffix = "\n\n⚠️ [Content truncated during persistence — original exceeded size limit. Use offset/limit parameters or request specific sections for large content.]"

// Sanitizer removes malformed tool-call arguments from an assistant entry.
// Returning a zero-length result means the entry should be dropped entirely.
type Sanitizer func(entry session.Entry) []session.Entry

// Transform is a user-supplied tool-result rewrite hook, applied after the
// size cap and before the recoverable-error annotation.
type Transform func(entry session.Entry) session.Entry

// BeforeWriteHook runs immediately before a tool-result entry is persisted.
// It may block (return an error) or substitute the entry to persist.
type BeforeWriteHook func(entry session.Entry) (session.Entry, error)

// Guard wraps a session.Manager's AppendMessage with the pairing/cap/
// annotate pipeline described above.
type Guard struct {
	inner session.Manager

	sanitize    Sanitizer
	transform   Transform
	beforeWrite BeforeWriteHook

	mu      sync.Mutex
	pending map[string]string // toolCallId -> toolName
}

// New wraps inner. sanitize, transform, and beforeWrite may be nil, in which
// case each stage is a no-op.
func New(inner session.Manager, sanitize Sanitizer, transform Transform, beforeWrite BeforeWriteHook) *Guard {
	return &Guard{
		inner:       inner,
		sanitize:    sanitize,
		transform:   transform,
		beforeWrite: beforeWrite,
		pending:     make(map[string]string),
	}
}

// AppendMessage runs entry through the pairing/cap/annotate pipeline before
// delegating to the wrapped session.Manager, per spec.md §4.6 steps 1-4.
func (g *Guard) AppendMessage(entry session.Entry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch entry.Role {
	case "assistant":
		return g.appendAssistantLocked(entry)
	case "tool_result":
		return g.appendToolResultLocked(entry)
	default:
		if err := g.flushPendingLocked(); err != nil {
			return err
		}
		return g.inner.AppendMessage(entry)
	}
}

func (g *Guard) appendAssistantLocked(entry session.Entry) error {
	variants := []session.Entry{entry}
	if g.sanitize != nil {
		variants = g.sanitize(entry)
	}
	if len(variants) == 0 {
		return g.flushPendingLocked()
	}
	if err := g.flushPendingLocked(); err != nil {
		return err
	}
	for _, variant := range variants {
		if err := g.inner.AppendMessage(variant); err != nil {
			return err
		}
		for _, tc := range variant.ToolCalls {
			g.pending[tc.ID] = tc.Name
		}
	}
	return nil
}

func (g *Guard) appendToolResultLocked(entry session.Entry) error {
	toolName := g.pending[entry.ToolCallID]
	delete(g.pending, entry.ToolCallID)

	entry = capSize(entry)
	if g.transform != nil {
		entry = g.transform(entry)
	}
	entry = annotateRecoverable(entry, toolName)

	if g.beforeWrite != nil {
		substituted, err := g.beforeWrite(entry)
		if err != nil {
			return err
		}
		entry = substituted
	}
	return g.inner.AppendMessage(entry)
}

func (g *Guard) flushPendingLocked() error {
	if len(g.pending) == 0 {
		return nil
	}
	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	for _, id := range ids {
		placeholder := session.Entry{
			Role:        "tool_result",
			ToolCallID:  id,
			Content:     "[no result received]",
			IsSynthetic: true,
		}
		if err := g.inner.AppendMessage(placeholder); err != nil {
			return err
		}
		delete(g.pending, id)
	}
	return nil
}

// FlushPendingToolResults synthesizes placeholder tool-results for every
// still-pending tool call, for explicit flush on shutdown (spec.md §6).
func (g *Guard) FlushPendingToolResults() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flushPendingLocked()
}

// GetPendingIDs returns the tool-call ids still awaiting a result.
func (g *Guard) GetPendingIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	return ids
}

// GetSessionFile and GetEntries pass through to the wrapped manager so Guard
// itself can stand in as a session.Manager.
func (g *Guard) GetSessionFile() (string, bool) {
	return g.inner.GetSessionFile()
}

func (g *Guard) GetEntries() []session.Entry {
	return g.inner.GetEntries()
}

var _ session.Manager = (*Guard)(nil)
