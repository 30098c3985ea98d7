package menu

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nibzard/taskdeck/internal/config"
	"github.com/nibzard/taskdeck/internal/logging"
	"github.com/nibzard/taskdeck/internal/task"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultCategory: "General",
		ConfirmDelete:   true,
	}
}

// runSession scripts a menu session: each line is one line of user
// input. Returns the console transcript and the store.
func runSession(t *testing.T, store *task.Store, cfg *config.Config, lines ...string) string {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer

	m := New(store, cfg, logging.NewTestLogger(io.Discard), in, &out)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("menu session failed: %v\ntranscript:\n%s", err, out.String())
	}
	return out.String()
}

func newSessionStore(t *testing.T) *task.Store {
	t.Helper()
	s, err := task.Open(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestAddCompleteStatsSession(t *testing.T) {
	store := newSessionStore(t)

	out := runSession(t, store, testConfig(),
		"1",                    // Add Task
		"Finish report",        // title
		"Complete Q3 analysis", // description
		"Work",                 // category
		"4",                    // Mark Completed
		"1",                    // task id
		"9",                    // Statistics
		"0",                    // Exit
	)

	if !strings.Contains(out, `Task "Finish report" added with ID 1.`) {
		t.Errorf("missing add confirmation:\n%s", out)
	}
	if !strings.Contains(out, `Task "Finish report" marked as completed.`) {
		t.Errorf("missing completion confirmation:\n%s", out)
	}
	if !strings.Contains(out, "Total Tasks: 1") || !strings.Contains(out, "Completion Rate: 100.0%") {
		t.Errorf("missing statistics:\n%s", out)
	}

	// The session persisted across exit.
	reloaded, err := task.Open(store.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reloaded.Get(1)
	if err != nil {
		t.Fatalf("Get after session: %v", err)
	}
	if !got.Completed || got.Category != "Work" {
		t.Errorf("persisted task: %+v", got)
	}
}

func TestAddDefaultsCategory(t *testing.T) {
	store := newSessionStore(t)

	runSession(t, store, testConfig(),
		"1",
		"Untitled chores",
		"", // no description
		"", // no category, falls back to default
		"0",
	)

	got, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Category != "General" {
		t.Errorf("Category: got %q, want General", got.Category)
	}
}

func TestEmptyTitleReprompts(t *testing.T) {
	store := newSessionStore(t)

	out := runSession(t, store, testConfig(),
		"1",
		"",           // rejected, reprompt
		"   ",        // rejected again
		"Real title", // accepted
		"",
		"",
		"0",
	)

	if !strings.Contains(out, "Input cannot be empty.") {
		t.Errorf("missing reprompt message:\n%s", out)
	}
	if store.Len() != 1 {
		t.Errorf("Len: got %d, want 1", store.Len())
	}
}

func TestInvalidMenuChoice(t *testing.T) {
	store := newSessionStore(t)

	out := runSession(t, store, testConfig(),
		"banana",
		"42",
		"0",
	)

	if !strings.Contains(out, "Please enter a valid number.") {
		t.Errorf("missing non-numeric message:\n%s", out)
	}
	if !strings.Contains(out, "Invalid choice.") {
		t.Errorf("missing out-of-range message:\n%s", out)
	}
}

func TestMarkNotFoundReportsAndContinues(t *testing.T) {
	store := newSessionStore(t)
	store.Add("only task", "", "")

	out := runSession(t, store, testConfig(),
		"4",
		"99",
		"0",
	)

	if !strings.Contains(out, "Task with ID 99 not found.") {
		t.Errorf("missing not-found message:\n%s", out)
	}
	got, _ := store.Get(1)
	if got.Completed {
		t.Error("unrelated task must not change")
	}
}

func TestDeleteConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		deleted bool
	}{
		{"confirmed", "y", true},
		{"confirmed long", "yes", true},
		{"declined", "n", false},
		{"declined by default", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newSessionStore(t)
			store.Add("doomed?", "", "")

			out := runSession(t, store, testConfig(),
				"7",
				"1",
				tt.answer,
				"0",
			)

			if tt.deleted {
				if store.Len() != 0 {
					t.Errorf("task should be deleted:\n%s", out)
				}
			} else {
				if store.Len() != 1 {
					t.Errorf("task should survive:\n%s", out)
				}
				if !strings.Contains(out, "Delete cancelled.") {
					t.Errorf("missing cancel message:\n%s", out)
				}
			}
		})
	}
}

func TestDeleteWithoutConfirmation(t *testing.T) {
	store := newSessionStore(t)
	store.Add("gone soon", "", "")

	cfg := testConfig()
	cfg.ConfirmDelete = false

	runSession(t, store, cfg,
		"7",
		"1", // no confirmation prompt expected
		"0",
	)

	if store.Len() != 0 {
		t.Error("task should be deleted without confirmation")
	}
}

func TestEditKeepsBlankFields(t *testing.T) {
	store := newSessionStore(t)
	store.Add("keep me", "old description", "Work")

	out := runSession(t, store, testConfig(),
		"6",
		"1",
		"",       // keep title
		"",       // keep description
		"Urgent", // change category
		"0",
	)

	got, _ := store.Get(1)
	if got.Title != "keep me" || got.Description != "old description" {
		t.Errorf("blank inputs must keep current values: %+v\n%s", got, out)
	}
	if got.Category != "Urgent" {
		t.Errorf("Category: got %q, want Urgent", got.Category)
	}
}

func TestSearchSession(t *testing.T) {
	store := newSessionStore(t)
	store.Add("Finish report", "", "Work")
	store.Add("Clean kitchen", "", "Personal")

	out := runSession(t, store, testConfig(),
		"8",
		"report",
		"0",
	)

	if !strings.Contains(out, "Found 1 matching task(s):") {
		t.Errorf("missing search result count:\n%s", out)
	}
	if !strings.Contains(out, "Finish report") || strings.Contains(out, "Clean kitchen") {
		t.Errorf("wrong search results:\n%s", out)
	}
}

func TestViewGroupsByCategory(t *testing.T) {
	store := newSessionStore(t)
	store.Add("w1", "", "Work")
	store.Add("p1", "", "Personal")
	store.Add("w2", "", "Work")

	out := runSession(t, store, testConfig(),
		"2",
		"0",
	)

	workIdx := strings.Index(out, "WORK")
	personalIdx := strings.Index(out, "PERSONAL")
	if workIdx == -1 || personalIdx == -1 {
		t.Fatalf("missing category headers:\n%s", out)
	}
	if workIdx > personalIdx {
		t.Errorf("categories should appear in first-seen order:\n%s", out)
	}
}

func TestFilterByCategorySession(t *testing.T) {
	store := newSessionStore(t)
	store.Add("w1", "", "Work")
	store.Add("p1", "", "Personal")

	out := runSession(t, store, testConfig(),
		"10",
		"work", // case-insensitive
		"0",
	)

	if !strings.Contains(out, "w1") {
		t.Errorf("missing matching task:\n%s", out)
	}
	if strings.Contains(out, "p1") {
		t.Errorf("non-matching task leaked into filtered view:\n%s", out)
	}
}

func TestListCategoriesSession(t *testing.T) {
	store := newSessionStore(t)
	store.Add("a", "", "Chores")

	cfg := testConfig()
	cfg.Categories = []string{"Gardening"}

	out := runSession(t, store, cfg,
		"11",
		"0",
	)

	for _, want := range []string{"Work", "General", "Chores", "Gardening"} {
		if !strings.Contains(out, want) {
			t.Errorf("categories listing missing %q:\n%s", want, out)
		}
	}
}

func TestEOFExitsAndSaves(t *testing.T) {
	store := newSessionStore(t)
	store.Add("persist me", "", "")

	in := strings.NewReader("") // immediate EOF
	var out bytes.Buffer
	m := New(store, testConfig(), logging.NewTestLogger(io.Discard), in, &out)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(out.String(), "Tasks saved.") {
		t.Errorf("missing save message on EOF exit:\n%s", out.String())
	}
}
