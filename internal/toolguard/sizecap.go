package toolguard

import (
	"strings"

	"github.com/alfadb/openclaw/internal/session"
)

// capSize enforces HardMaxToolResultChars (counted in bytes) on entry's
// content, preferring a cut at the last newline within the final 20% of the
// budget, per spec.md §4.6.
func capSize(entry session.Entry) session.Entry {
	if len(entry.Content) <= HardMaxToolResultChars {
		return entry
	}
	budget := HardMaxToolResultChars
	cut := budget
	tailStart := budget - budget/5 // last 20% of the budget
	if idx := strings.LastIndex(entry.Content[:budget], "\n"); idx >= tailStart {
		cut = idx
	}
	entry.Content = entry.Content[:cut] + truncationSuffix
	return entry
}
