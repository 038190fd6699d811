package announce

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfadb/openclaw/internal/platform/logging"
)

const defaultMaxConcurrentDrains = 8

// queueState is one key's mutable queue, created on first enqueue and
// deleted once it is empty, has no pending drop summary, and no drain is
// running.
type queueState struct {
	mu sync.Mutex

	items          []Item
	settings       Settings
	send           SendFunc
	draining       bool
	lastEnqueuedAt int64
	droppedCount   int
	summaryLines   []string

	forceIndividualCollect bool

	debounceTimer *time.Timer
}

// Manager owns every key's queueState plus the bounded pool of concurrent
// drain goroutines, grounded on the teacher's subagent worker pool
// (internal/tools/builtin/subagent.go's errgroup.WithContext +
// g.SetLimit) and its per-path debounce timer map
// (internal/infra/memory/indexer.go's scheduleIndex).
type Manager struct {
	mu     sync.Mutex
	queues map[string]*queueState

	group *errgroup.Group
	ctx   context.Context

	logger logging.Logger
	now    func() int64
}

// NewManager creates a Manager whose drains run against ctx (typically the
// gateway's long-lived background context) with at most maxConcurrent
// drains active at once. maxConcurrent <= 0 uses the default of 8.
func NewManager(ctx context.Context, maxConcurrent int, logger logging.Logger) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentDrains
	}
	group := &errgroup.Group{}
	group.SetLimit(maxConcurrent)
	return &Manager{
		queues: make(map[string]*queueState),
		group:  group,
		ctx:    ctx,
		logger: logging.OrNop(logger),
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

func (m *Manager) stateFor(key string) *queueState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.queues[key]
	if !ok {
		st = &queueState{}
		m.queues[key] = st
	}
	return st
}

func (m *Manager) deleteIfEmpty(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.queues[key]
	if !ok {
		return
	}
	st.mu.Lock()
	empty := len(st.items) == 0 && st.droppedCount == 0 && !st.draining
	st.mu.Unlock()
	if empty {
		delete(m.queues, key)
	}
}

// Enqueue implements spec.md §4.5's enqueue steps: fetch-or-create the
// key's queue, refresh its mutable settings and send callback, apply the
// configured drop policy if the key is at capacity, push item, and
// schedule a drain.
func (m *Manager) Enqueue(key string, item Item, settings Settings, send SendFunc) {
	st := m.stateFor(key)

	st.mu.Lock()
	st.settings = settings
	st.send = send
	if item.EnqueuedAtMs == 0 {
		item.EnqueuedAtMs = m.now()
	}

	capacity := settings.Cap
	if capacity > 0 && len(st.items) >= capacity {
		switch settings.DropPolicy {
		case DropNewest:
			st.mu.Unlock()
			return
		case DropOldest, DropSummarize, "":
			front := st.items[0]
			st.items = st.items[1:]
			st.droppedCount++
			st.summaryLines = append(st.summaryLines, summaryLineFor(front))
		}
	}

	st.items = append(st.items, item)
	st.lastEnqueuedAt = m.now()
	st.mu.Unlock()

	m.scheduleDrain(key, st)
}

func summaryLineFor(item Item) string {
	if item.SummaryLine != "" {
		return item.SummaryLine
	}
	return item.Prompt
}

// scheduleDrain arms (or re-arms) key's debounce timer. Only one drain
// goroutine is ever active per key, guarded by draining; a timer firing
// while a drain is already running is a no-op, since the running drain's
// own loop re-observes lastEnqueuedAt on every pass.
func (m *Manager) scheduleDrain(key string, st *queueState) {
	st.mu.Lock()
	if st.draining {
		st.mu.Unlock()
		return
	}
	if st.debounceTimer != nil {
		st.debounceTimer.Stop()
	}
	debounce := time.Duration(st.settings.DebounceMs) * time.Millisecond
	st.debounceTimer = time.AfterFunc(debounce, func() {
		m.startDrain(key, st)
	})
	st.mu.Unlock()
}

func (m *Manager) startDrain(key string, st *queueState) {
	st.mu.Lock()
	if st.draining {
		st.mu.Unlock()
		return
	}
	st.draining = true
	st.mu.Unlock()

	m.group.Go(func() error {
		m.drain(key, st)
		return nil
	})
}

// ResetForTests discards all queue state, for worker isolation between
// test cases (spec.md §9 design notes).
func (m *Manager) ResetForTests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.queues {
		st.mu.Lock()
		if st.debounceTimer != nil {
			st.debounceTimer.Stop()
		}
		st.mu.Unlock()
	}
	m.queues = make(map[string]*queueState)
}
