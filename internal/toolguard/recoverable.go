package toolguard

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alfadb/openclaw/internal/platform/jsonx"
	"github.com/alfadb/openclaw/internal/session"
)

const recoverableMarker = "[RECOVERABLE_TOOL_ERROR]"

// Recoverable kinds recognized for the "edit" tool family.
const (
	KindEditExactMatchNotFound = "EDIT_EXACT_MATCH_NOT_FOUND"
	KindEditNotUnique          = "EDIT_NOT_UNIQUE"
)

var (
	exactMatchNotFoundPattern = regexp.MustCompile(`Could not find the exact text in (\S+)`)
	notUniquePattern          = regexp.MustCompile(`Found (\d+) occurrences of the text(?: in (\S+))?`)
)

type recoverablePayload struct {
	Kind        string   `json:"kind"`
	Path        string   `json:"path,omitempty"`
	Occurrences int      `json:"occurrences,omitempty"`
	Suggestions []string `json:"suggestions"`
}

// annotateRecoverable appends a [RECOVERABLE_TOOL_ERROR] block to error
// tool-results produced by the "edit" tool family, when the text matches one
// of the two recognized failure shapes and isn't already annotated.
//
// EDIT_NOT_UNIQUE is detected alongside EDIT_EXACT_MATCH_NOT_FOUND: both are
// plain substring matches on the same "edit" tool failure text.
func annotateRecoverable(entry session.Entry, toolName string) session.Entry {
	if entry.IsSynthetic || !entry.IsError || toolName != "edit" {
		return entry
	}
	if strings.Contains(entry.Content, recoverableMarker) {
		return entry
	}

	payload, ok := detectRecoverablePayload(entry.Content)
	if !ok {
		return entry
	}

	block, err := jsonx.MarshalIndent(payload, "", "  ")
	if err != nil {
		return entry
	}
	entry.Content = entry.Content + "\n\n" + recoverableMarker + "\n" + string(block)
	return entry
}

func detectRecoverablePayload(text string) (recoverablePayload, bool) {
	if m := exactMatchNotFoundPattern.FindStringSubmatch(text); m != nil {
		return recoverablePayload{
			Kind: KindEditExactMatchNotFound,
			Path: strings.TrimRight(m[1], ".…"),
			Suggestions: []string{
				"re-read the file to confirm its current contents",
				"copy the exact text to replace, including whitespace",
			},
		}, true
	}
	if m := notUniquePattern.FindStringSubmatch(text); m != nil {
		occurrences, _ := strconv.Atoi(m[1])
		return recoverablePayload{
			Kind:        KindEditNotUnique,
			Path:        strings.TrimRight(m[2], ".…"),
			Occurrences: occurrences,
			Suggestions: []string{
				"include more surrounding context to make the match unique",
				"target one occurrence at a time",
			},
		}, true
	}
	return recoverablePayload{}, false
}
