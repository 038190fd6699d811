package inflight

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/alfadb/openclaw/internal/platform/jsonx"
)

// Store is the atomic, file-backed journal of per-anchor task records
// described by spec.md §4.1. One file lives per accountId; a per-account
// mutex serializes the read-modify-write cycle so two goroutines handling
// the same account never interleave writes.
type Store struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store rooted at <stateDir>/feishu/inflight.
func NewStore(stateDir string) *Store {
	return &Store{
		baseDir: filepath.Join(stateDir, "feishu", "inflight"),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// pathFor returns the on-disk path for accountID's store file.
func (s *Store) pathFor(accountID string) string {
	return filepath.Join(s.baseDir, accountID+"-store.json")
}

// Read loads and parses accountID's store file. A missing or corrupt file
// is treated as an empty store rather than an error, per spec.md §4.1.
func (s *Store) Read(accountID string) (path string, doc Document, err error) {
	path = s.pathFor(accountID)
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return path, emptyDocument(), nil
		}
		return path, emptyDocument(), nil
	}
	var parsed Document
	if err := jsonx.Unmarshal(data, &parsed); err != nil {
		return path, emptyDocument(), nil
	}
	if parsed.LastInterruptibleByChatID == nil {
		parsed.LastInterruptibleByChatID = make(map[string]string)
	}
	if parsed.LastAnswerByChatID == nil {
		parsed.LastAnswerByChatID = make(map[string]LastAnswer)
	}
	if parsed.Version == 0 {
		parsed.Version = documentVersion
	}
	return path, parsed, nil
}

// Write JSON-serializes doc and commits it to path via tmp+rename. Callers
// must not interleave writes for the same path; Mutate below provides that
// serialization.
func (s *Store) Write(path string, doc Document) error {
	if doc.Version == 0 {
		doc.Version = documentVersion
	}
	if doc.LastInterruptibleByChatID == nil {
		doc.LastInterruptibleByChatID = make(map[string]string)
	}
	if doc.LastAnswerByChatID == nil {
		doc.LastAnswerByChatID = make(map[string]LastAnswer)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("inflight: create store dir: %w", err)
	}
	data, err := jsonx.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("inflight: encode store: %w", err)
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("inflight: write temp store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("inflight: commit store: %w", err)
	}
	return nil
}

// Mutate performs one read → transform → write cycle for accountID under
// that account's mutex, returning the document as committed.
func (s *Store) Mutate(accountID string, fn func(Document) Document) (Document, error) {
	lock := s.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	path, doc, err := s.Read(accountID)
	if err != nil {
		return Document{}, err
	}
	next := fn(doc)
	if err := s.Write(path, next); err != nil {
		return Document{}, err
	}
	return next, nil
}

// View performs a read-only snapshot of accountID's document.
func (s *Store) View(accountID string) (Document, error) {
	_, doc, err := s.Read(accountID)
	return doc, err
}

// CreateID generates a fresh task identifier, grounded on the teacher's
// "task-" + uuid.New().String() convention (internal/server/app/task_store.go).
func CreateID() string {
	return "task-" + uuid.New().String()
}
