package tasks

import (
	"strings"
	"time"
)

type Status string

const (
	StatusTodo  Status = "Todo"
	StatusDoing Status = "Doing"
	StatusDone  Status = "Done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusDoing, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"

	// PriorityAll disables the priority filter.
	PriorityAll Priority = "All"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DateLayout is the calendar-date format of DueDate.
const DateLayout = "2006-01-02"

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"dueDate"`
	Tags        string    `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      Status    `json:"status"`
}

// Due returns the parsed due date; ok is false when it is absent or unparseable.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func (t Task) TagList() []string { return ParseTags(t.Tags) }

// ParseTags splits a comma-separated tag string into trimmed, non-empty tokens,
// keeping the first occurrence of each.
func ParseTags(raw string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

type LogEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTask carries the input of Store.Add. Zero values take defaults.
type NewTask struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     string
	Tags        string
	Status      Status
}

// Changes is a partial update for Store.Edit; nil fields are left alone, as is
// a Status that is not a board column.
type Changes struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Tags        *string   `json:"tags,omitempty"`
	Status      *Status   `json:"status,omitempty"`
}

func (c Changes) apply(t *Task) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.DueDate != nil {
		t.DueDate = *c.DueDate
	}
	if c.Tags != nil {
		t.Tags = *c.Tags
	}
	if c.Status != nil && c.Status.Valid() {
		t.Status = *c.Status
	}
}
