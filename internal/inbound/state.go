package inbound

// State is the persistent per-(accountId, chatId) watermark and recent-id
// ring described by spec.md §3.
type State struct {
	LastProcessedSentAtMs int64    `json:"lastProcessedSentAtMs"`
	RecentMessageIDs      []string `json:"recentMessageIds"`
	UpdatedAtMs           int64    `json:"updatedAtMs"`
}

const defaultRecentIDsLimit = 250

func emptyState() State {
	return State{RecentMessageIDs: []string{}}
}

// Contains reports whether id is present in the recent-id ring.
func (s State) Contains(id string) bool {
	for _, existing := range s.RecentMessageIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// pushID appends id to the ring, trimming from the front to limit.
func pushID(ids []string, id string, limit int) []string {
	next := append(ids, id)
	if len(next) > limit {
		next = next[len(next)-limit:]
	}
	return next
}
