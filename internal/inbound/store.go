package inbound

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/alfadb/openclaw/internal/platform/jsonx"
)

// Store is the atomic, file-backed InboundState journal, one file per
// (accountId, chatId), mirroring internal/inflight.Store's tmp+rename
// persistence and per-key mutex discipline (spec.md §5).
type Store struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store rooted at <stateDir>/feishu/inbound.
func NewStore(stateDir string) *Store {
	return &Store{
		baseDir: filepath.Join(stateDir, "feishu", "inbound"),
		locks:   make(map[string]*sync.Mutex),
	}
}

func lockKey(accountID, chatID string) string {
	return accountID + "\x00" + chatID
}

func (s *Store) lockFor(accountID, chatID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lockKey(accountID, chatID)
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// pathFor returns the on-disk path for (accountID, chatID)'s state file.
// chatID is URL-encoded so path separators or other reserved characters in
// provider chat ids never escape the target directory.
func (s *Store) pathFor(accountID, chatID string) string {
	return filepath.Join(s.baseDir, accountID+"-"+url.QueryEscape(chatID)+".json")
}

// Read loads and parses the state file for (accountID, chatID). A missing or
// corrupt file is treated as empty state, matching InFlightStore's
// tolerance for a fresh or damaged journal.
func (s *Store) Read(accountID, chatID string) (path string, state State, err error) {
	path = s.pathFor(accountID, chatID)
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return path, emptyState(), nil
	}
	var parsed State
	if err := jsonx.Unmarshal(data, &parsed); err != nil {
		return path, emptyState(), nil
	}
	if parsed.RecentMessageIDs == nil {
		parsed.RecentMessageIDs = []string{}
	}
	return path, parsed, nil
}

// Write commits state to path via tmp+rename.
func (s *Store) Write(path string, state State) error {
	if state.RecentMessageIDs == nil {
		state.RecentMessageIDs = []string{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("inbound: create state dir: %w", err)
	}
	data, err := jsonx.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("inbound: encode state: %w", err)
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("inbound: write temp state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("inbound: commit state: %w", err)
	}
	return nil
}

// Mutate performs one read -> transform -> write cycle for (accountID,
// chatID) under that pair's mutex.
func (s *Store) Mutate(accountID, chatID string, fn func(State) State) (State, error) {
	lock := s.lockFor(accountID, chatID)
	lock.Lock()
	defer lock.Unlock()

	path, state, err := s.Read(accountID, chatID)
	if err != nil {
		return State{}, err
	}
	next := fn(state)
	if err := s.Write(path, next); err != nil {
		return State{}, err
	}
	return next, nil
}

// View performs a read-only snapshot.
func (s *Store) View(accountID, chatID string) (State, error) {
	_, state, err := s.Read(accountID, chatID)
	return state, err
}
