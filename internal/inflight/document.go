package inflight

// LastAnswer is the best-effort trace of a chat's most recently completed
// task, kept after the task record itself is removed on done (SPEC_FULL §3).
type LastAnswer struct {
	TaskID        string `json:"taskId"`
	AnswerPreview string `json:"answerPreview,omitempty"`
	TokensUsed    int    `json:"tokensUsed,omitempty"`
	CompletedAtMs int64  `json:"completedAtMs"`
}

// Document is the on-disk shape of one account's InFlightStore file:
// {version: 1, tasks: [...], lastInterruptibleByChatId: {chatId -> taskId},
// lastAnswerByChatId: {chatId -> LastAnswer}}.
type Document struct {
	Version                   int                   `json:"version"`
	Tasks                     []Task                `json:"tasks"`
	LastInterruptibleByChatID map[string]string     `json:"lastInterruptibleByChatId"`
	LastAnswerByChatID        map[string]LastAnswer `json:"lastAnswerByChatId"`
}

const documentVersion = 1

func emptyDocument() Document {
	return Document{
		Version:                   documentVersion,
		Tasks:                     nil,
		LastInterruptibleByChatID: make(map[string]string),
		LastAnswerByChatID:        make(map[string]LastAnswer),
	}
}

func (d Document) clone() Document {
	out := Document{
		Version: d.Version,
		Tasks:   make([]Task, len(d.Tasks)),
	}
	copy(out.Tasks, d.Tasks)
	out.LastInterruptibleByChatID = make(map[string]string, len(d.LastInterruptibleByChatID))
	for k, v := range d.LastInterruptibleByChatID {
		out.LastInterruptibleByChatID[k] = v
	}
	out.LastAnswerByChatID = make(map[string]LastAnswer, len(d.LastAnswerByChatID))
	for k, v := range d.LastAnswerByChatID {
		out.LastAnswerByChatID[k] = v
	}
	return out
}

// FindByID returns the task with the given id, if present.
func (d Document) FindByID(taskID string) (Task, bool) {
	for _, t := range d.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

// FindByAnchor returns the task anchored on messageID for accountID, if present.
func (d Document) FindByAnchor(accountID, messageID string) (Task, bool) {
	for _, t := range d.Tasks {
		if t.AccountID == accountID && t.MessageID == messageID {
			return t, true
		}
	}
	return Task{}, false
}

// ListByChat returns tasks for chatID, optionally filtering to non-terminal
// states only (SPEC_FULL §4.1 expansion: backs natural-language status
// queries). Results are not ordered by the caller's request; callers that
// need a specific order should sort the returned slice.
func (d Document) ListByChat(chatID string, activeOnly bool) []Task {
	var out []Task
	for _, t := range d.Tasks {
		if t.ChatID != chatID {
			continue
		}
		if activeOnly && IsTerminal(t.State) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UpsertTask returns a copy of d with task inserted or replaced by id.
// Invariant: at most one task per (accountId, messageId) — callers adding a
// brand new task must have already checked FindByAnchor.
func UpsertTask(d Document, task Task) Document {
	out := d.clone()
	for i, t := range out.Tasks {
		if t.ID == task.ID {
			out.Tasks[i] = task
			return out
		}
	}
	out.Tasks = append(out.Tasks, task)
	return out
}

// RemoveTask returns a copy of d with taskID removed, if present.
func RemoveTask(d Document, taskID string) Document {
	out := d.clone()
	filtered := out.Tasks[:0]
	for _, t := range out.Tasks {
		if t.ID != taskID {
			filtered = append(filtered, t)
		}
	}
	out.Tasks = filtered
	return out
}

// SetLastInterruptible returns a copy of d recording taskID as the last
// interruptible task for chatID.
func SetLastInterruptible(d Document, chatID, taskID string) Document {
	out := d.clone()
	out.LastInterruptibleByChatID[chatID] = taskID
	return out
}

// GetLastInterruptibleTask resolves the last-interruptible task id for
// chatID and returns the matching task, if it still exists.
func GetLastInterruptibleTask(d Document, chatID string) (Task, bool) {
	taskID, ok := d.LastInterruptibleByChatID[chatID]
	if !ok || taskID == "" {
		return Task{}, false
	}
	return d.FindByID(taskID)
}

// SetLastAnswer returns a copy of d recording answer as the most recently
// completed task for chatID, surviving the task record's own removal.
func SetLastAnswer(d Document, chatID string, answer LastAnswer) Document {
	out := d.clone()
	out.LastAnswerByChatID[chatID] = answer
	return out
}

// GetLastAnswer resolves the last completed task's answer trace for chatID.
func GetLastAnswer(d Document, chatID string) (LastAnswer, bool) {
	answer, ok := d.LastAnswerByChatID[chatID]
	return answer, ok
}
