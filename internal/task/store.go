package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store holds the ordered task collection and mirrors it to a JSON file.
// It is single-owner: one process, one instance, no locking.
type Store struct {
	path   string
	tasks  []Task
	nextID int
}

// storeFile is the on-disk shape of the store.
type storeFile struct {
	Tasks  []Task `json:"tasks"`
	NextID int    `json:"next_id"`
}

// Open reads the store file at path. A missing file yields an empty
// store. A file that exists but cannot be parsed yields an empty,
// usable store together with a *CorruptError so the caller can warn
// about the data loss instead of crashing.
func Open(path string) (*Store, error) {
	s := &Store{path: path, nextID: 1}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, &CorruptError{Path: path, Err: err}
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return s, &CorruptError{Path: path, Err: err}
	}

	s.tasks = f.Tasks
	s.normalize(f.NextID)
	return s, nil
}

// normalize applies load-time defaults: missing categories, cleared
// completion timestamps on incomplete tasks, backfilled ids, and the
// next-id watermark.
func (s *Store) normalize(fileNextID int) {
	maxID := 0
	for i := range s.tasks {
		if s.tasks[i].Category == "" {
			s.tasks[i].Category = DefaultCategory
		}
		if !s.tasks[i].Completed {
			s.tasks[i].CompletedAt = nil
		}
		if s.tasks[i].ID > maxID {
			maxID = s.tasks[i].ID
		}
	}

	s.nextID = maxID + 1
	if fileNextID > s.nextID {
		s.nextID = fileNextID
	}

	// Tasks persisted without an id get the next free one.
	for i := range s.tasks {
		if s.tasks[i].ID == 0 {
			s.tasks[i].ID = s.nextID
			s.nextID++
		}
	}
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of tasks in the store.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Save serializes the full collection to the store file, replacing any
// prior content. The write goes to a temp file in the same directory
// and is renamed into place so a crash mid-write cannot truncate the
// previous valid file.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(storeFile{
		Tasks:  s.tasks,
		NextID: s.nextID,
	}, "", "  ")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}

	// Add trailing newline
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistError{Path: s.path, Err: err}
	}

	return nil
}

// Add creates a task and appends it to the collection. The title must
// be non-blank; description is optional; a blank category falls back
// to DefaultCategory. The new task is returned after the store is
// saved. A *PersistError leaves the task in memory unsaved.
func (s *Store) Add(title, description, category string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Err: errors.New("must not be empty")}
	}

	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	t := Task{
		ID:          s.nextID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    category,
		CreatedAt:   time.Now().UTC(),
	}
	s.tasks = append(s.tasks, t)
	s.nextID++

	if err := s.Save(); err != nil {
		return t, err
	}
	return t, nil
}

// Get returns the task with the given id.
func (s *Store) Get(id int) (Task, error) {
	t := s.find(id)
	if t == nil {
		return Task{}, &NotFoundError{ID: id}
	}
	return *t, nil
}

// Edit updates only the fields supplied in u. Completion state,
// timestamps, and the id are never touched. A supplied title must be
// non-blank.
func (s *Store) Edit(id int, u Update) (Task, error) {
	t := s.find(id)
	if t == nil {
		return Task{}, &NotFoundError{ID: id}
	}

	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return Task{}, &ValidationError{Field: "title", Err: errors.New("must not be empty")}
		}
		t.Title = title
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	if u.Category != nil {
		category := strings.TrimSpace(*u.Category)
		if category == "" {
			category = DefaultCategory
		}
		t.Category = category
	}

	if err := s.Save(); err != nil {
		return *t, err
	}
	return *t, nil
}

// MarkCompleted sets the task completed and stamps completed_at with
// the current time, re-stamping if it was already completed.
func (s *Store) MarkCompleted(id int) (Task, error) {
	t := s.find(id)
	if t == nil {
		return Task{}, &NotFoundError{ID: id}
	}

	now := time.Now().UTC()
	t.Completed = true
	t.CompletedAt = &now

	if err := s.Save(); err != nil {
		return *t, err
	}
	return *t, nil
}

// MarkIncomplete reverts the task to incomplete and clears completed_at.
func (s *Store) MarkIncomplete(id int) (Task, error) {
	t := s.find(id)
	if t == nil {
		return Task{}, &NotFoundError{ID: id}
	}

	t.Completed = false
	t.CompletedAt = nil

	if err := s.Save(); err != nil {
		return *t, err
	}
	return *t, nil
}

// Delete removes the task permanently. Remaining ids are never shifted
// or reassigned.
func (s *Store) Delete(id int) error {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return s.Save()
		}
	}
	return &NotFoundError{ID: id}
}

// List returns the tasks passing the filter, in insertion order. The
// result is a copy; grouping for display is the caller's concern.
func (s *Store) List(f Filter) []Task {
	out := make([]Task, 0, len(s.tasks))
	for i := range s.tasks {
		if f.Matches(&s.tasks[i]) {
			out = append(out, s.tasks[i])
		}
	}
	return out
}

// Search returns the tasks whose title, description, or category
// contains keyword, case-insensitively, in insertion order. An empty
// keyword matches all tasks, consistent with an unfiltered listing.
func (s *Store) Search(keyword string) []Task {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keyword == "" ||
			strings.Contains(strings.ToLower(t.Title), keyword) ||
			strings.Contains(strings.ToLower(t.Description), keyword) ||
			strings.Contains(strings.ToLower(t.Category), keyword) {
			out = append(out, t)
		}
	}
	return out
}

// Statistics computes aggregate counts over the whole store.
func (s *Store) Statistics() Stats {
	stats := Stats{Categories: make(map[string]CategoryStats)}
	for _, t := range s.tasks {
		stats.Total++
		cs := stats.Categories[t.Category]
		cs.Total++
		if t.Completed {
			stats.Completed++
			cs.Completed++
		}
		stats.Categories[t.Category] = cs
	}
	stats.Incomplete = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats
}

// Categories returns the suggested defaults followed by any custom
// categories in first-seen order, deduplicated case-insensitively.
func (s *Store) Categories() []string {
	out := make([]string, 0, len(SuggestedCategories))
	seen := make(map[string]bool, len(SuggestedCategories))
	for _, c := range SuggestedCategories {
		out = append(out, c)
		seen[strings.ToLower(c)] = true
	}
	for _, t := range s.tasks {
		key := strings.ToLower(t.Category)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t.Category)
	}
	return out
}

// find returns a pointer into the backing slice, or nil. Linear scan;
// the store never grows past interactive scale.
func (s *Store) find(id int) *Task {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}

// String renders the one-line listing form of a task.
func (t Task) String() string {
	status := "○"
	if t.Completed {
		status = "✓"
	}
	return fmt.Sprintf("%s [%d] %s (%s)", status, t.ID, t.Title, t.Category)
}
