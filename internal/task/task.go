// Package task owns the task collection and its on-disk JSON mirror.
package task

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is assigned when a task is created without a category.
const DefaultCategory = "General"

// SuggestedCategories are offered in prompts but never enforced as a
// closed set; any free-form category is accepted.
var SuggestedCategories = []string{"Work", "Personal", "Urgent", "General", "Health", "Learning"}

// Task represents a single to-do record.
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t.ID == 0
}

// Update carries the optional fields of an edit. Nil fields are left
// untouched; completed state and timestamps are never editable.
type Update struct {
	Title       *string
	Description *string
	Category    *string
}

// Filter narrows a listing. The zero value matches every task.
type Filter struct {
	// Completed filters by completion state when non-nil.
	Completed *bool
	// Category filters by exact category name, case-insensitively,
	// when non-empty.
	Category string
}

// Matches reports whether the task passes the filter.
func (f Filter) Matches(t *Task) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	return true
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Total     int
	Completed int
}

// Stats summarizes the store contents.
type Stats struct {
	Total      int
	Completed  int
	Incomplete int
	// CompletionRate is Completed/Total as a ratio in [0,1],
	// 0 when the store is empty.
	CompletionRate float64
	// Categories maps every distinct category to its counts.
	Categories map[string]CategoryStats
}

// NotFoundError reports an ID that is not present in the store.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

// ValidationError reports rejected input with the field that failed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CorruptError reports a store file that exists but cannot be parsed.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupted store file %s: %s", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *CorruptError) Unwrap() error {
	return e.Err
}

// PersistError reports a failed write of the store file. The in-memory
// state is intact when it is returned.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist store file %s: %s", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistError) Unwrap() error {
	return e.Err
}
