package announce

import (
	"fmt"
	"strings"
	"time"
)

const collectHeader = "[Queued announce messages while agent was busy]\n"

// drain implements spec.md §4.5's drain loop: wait out the debounce
// window, drop stale items, deliver according to mode, and on send
// failure leave the item queued and retry after another debounce rather
// than losing it or hot-looping.
func (m *Manager) drain(key string, st *queueState) {
	for {
		st.mu.Lock()
		if len(st.items) == 0 && st.droppedCount == 0 {
			st.draining = false
			st.mu.Unlock()
			m.deleteIfEmpty(key)
			return
		}

		waitMs := st.settings.DebounceMs - (m.now() - st.lastEnqueuedAt)
		if waitMs > 0 {
			st.mu.Unlock()
			time.Sleep(time.Duration(waitMs) * time.Millisecond)
			continue
		}

		m.dropStaleLocked(key, st)
		if len(st.items) == 0 && st.droppedCount == 0 {
			st.draining = false
			st.mu.Unlock()
			m.deleteIfEmpty(key)
			return
		}

		send := st.send
		mode := st.settings.Mode
		var toSend Item
		var commit func()

		switch mode {
		case ModeCollect:
			toSend, commit = m.buildCollectSend(st)
		default:
			toSend, commit = m.buildFollowupSend(st)
		}
		st.mu.Unlock()

		if send == nil {
			continue
		}
		err := send(m.ctx, toSend)

		st.mu.Lock()
		if err != nil {
			st.lastEnqueuedAt = m.now()
			m.logger.Warn("announce: send failed for key %s, will retry: %v", key, err)
			st.mu.Unlock()
			continue
		}
		commit()
		st.mu.Unlock()
	}
}

// dropStaleLocked removes items older than the key's maxAgeMs, unless
// highPriority. Must be called with st.mu held.
func (m *Manager) dropStaleLocked(key string, st *queueState) {
	if st.settings.MaxAgeMs <= 0 {
		return
	}
	now := m.now()
	kept := st.items[:0]
	for _, item := range st.items {
		if !item.HighPriority && now-item.EnqueuedAtMs > st.settings.MaxAgeMs {
			m.logger.Warn("announce: stale_message_dropped key=%s ageMs=%d", key, now-item.EnqueuedAtMs)
			continue
		}
		kept = append(kept, item)
	}
	st.items = kept
}

// buildFollowupSend implements the followup branch: an overflow summary
// takes priority over the real front item and does not consume it; a
// normal send delivers and shifts the front item.
func (m *Manager) buildFollowupSend(st *queueState) (Item, func()) {
	if len(st.summaryLines) > 0 {
		summary := buildOverflowSummary(st.summaryLines, st.droppedCount)
		front := st.items[0]
		front.Prompt = summary
		return front, func() {
			st.summaryLines = nil
			st.droppedCount = 0
		}
	}
	front := st.items[0]
	return front, func() {
		st.items = st.items[1:]
	}
}

// buildCollectSend implements the collect branch: cross-channel items (or
// a prior forced-individual decision) are delivered one-by-one; otherwise
// all pending items are coalesced into a single numbered prompt.
func (m *Manager) buildCollectSend(st *queueState) (Item, func()) {
	if st.forceIndividualCollect || crossChannel(st.items) {
		st.forceIndividualCollect = true
		front := st.items[0]
		return front, func() {
			st.items = st.items[1:]
			if len(st.items) == 0 {
				st.forceIndividualCollect = false
			}
		}
	}

	var b strings.Builder
	b.WriteString(collectHeader)
	for i, item := range st.items {
		fmt.Fprintf(&b, "---\nQueued #%d\n%s\n", i+1, item.Prompt)
	}
	if len(st.summaryLines) > 0 || st.droppedCount > 0 {
		b.WriteString(buildOverflowSummary(st.summaryLines, st.droppedCount))
	}

	last := st.items[len(st.items)-1]
	last.Prompt = b.String()
	return last, func() {
		st.items = nil
		st.summaryLines = nil
		st.droppedCount = 0
	}
}

func crossChannel(items []Item) bool {
	var key string
	for _, item := range items {
		if item.OriginKey == "" {
			continue
		}
		if key == "" {
			key = item.OriginKey
			continue
		}
		if item.OriginKey != key {
			return true
		}
	}
	return false
}

func buildOverflowSummary(summaryLines []string, droppedCount int) string {
	var b strings.Builder
	b.WriteString("[Queue overflow]\n")
	for _, line := range summaryLines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if droppedCount > len(summaryLines) {
		fmt.Fprintf(&b, "(%d more dropped)\n", droppedCount-len(summaryLines))
	}
	return b.String()
}
