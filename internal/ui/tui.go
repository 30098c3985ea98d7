// Package ui provides the optional terminal dashboard.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/taskdeck/internal/config"
	"github.com/nibzard/taskdeck/internal/task"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Faint(true)
)

// RunTUI starts the dashboard over the store file named in cfg. The
// file is re-read on every tick so external edits show up live.
func RunTUI(ctx context.Context, cfg *config.Config) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newDashModel(cfg)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type dashModel struct {
	cfg          *config.Config
	loadErr      error
	loadWarn     error
	tasks        []task.Task
	stats        task.Stats
	tickInterval time.Duration

	// filter state
	completed *bool
	category  string
	catCycle  []string
	catIndex  int

	showHelp bool
}

type tickMsg time.Time

func newDashModel(cfg *config.Config) *dashModel {
	return &dashModel{
		cfg:          cfg,
		tickInterval: time.Second,
	}
}

func (m *dashModel) Init() tea.Cmd {
	m.refresh()
	return tickCmd(m.tickInterval)
}

func (m *dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			m.refresh()
			return m, nil
		case "h", "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "1":
			incomplete := false
			m.completed = &incomplete
			return m, nil
		case "2":
			done := true
			m.completed = &done
			return m, nil
		case "c":
			m.cycleCategory()
			return m, nil
		case "0":
			m.completed = nil
			m.category = ""
			m.catIndex = 0
			return m, nil
		}
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.tickInterval)
	}

	return m, nil
}

func (m *dashModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("taskdeck") + "\n\n")

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, m.tickInterval)
		return b.String()
	}

	if m.loadErr != nil {
		b.WriteString("Error loading task store:\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
		writeFooter(&b, m.tickInterval)
		return b.String()
	}
	if m.loadWarn != nil {
		b.WriteString(dimStyle.Render("Warning: "+m.loadWarn.Error()) + "\n\n")
	}

	if f := m.filterLabel(); f != "" {
		b.WriteString(fmt.Sprintf("Filter: %s (0 to clear)\n\n", f))
	}

	m.writeOverview(&b)
	m.writeTasks(&b)
	m.writeConfig(&b)
	writeFooter(&b, m.tickInterval)
	return b.String()
}

func (m *dashModel) refresh() {
	store, err := task.Open(m.cfg.TasksFile)
	m.loadWarn = nil
	if err != nil {
		// A corrupt file still yields a usable empty store; keep the
		// dashboard up and surface the problem as a warning.
		var corrupt *task.CorruptError
		if !errors.As(err, &corrupt) {
			m.loadErr = err
			return
		}
		m.loadWarn = corrupt
	}
	m.loadErr = nil
	m.tasks = store.List(task.Filter{})
	m.stats = store.Statistics()
	m.catCycle = store.Categories()
}

func (m *dashModel) cycleCategory() {
	if len(m.catCycle) == 0 {
		return
	}
	m.catIndex = (m.catIndex % len(m.catCycle)) + 1
	if m.catIndex > len(m.catCycle) {
		m.catIndex = 1
	}
	m.category = m.catCycle[m.catIndex-1]
}

func (m *dashModel) filterLabel() string {
	var parts []string
	if m.completed != nil {
		if *m.completed {
			parts = append(parts, "completed")
		} else {
			parts = append(parts, "incomplete")
		}
	}
	if m.category != "" {
		parts = append(parts, "category="+m.category)
	}
	return strings.Join(parts, ", ")
}

func (m *dashModel) writeOverview(b *strings.Builder) {
	b.WriteString(sectionStyle.Render("Overview") + "\n\n")
	b.WriteString(fmt.Sprintf("  Total: %d  Completed: %d  Incomplete: %d",
		m.stats.Total, m.stats.Completed, m.stats.Incomplete))
	if m.stats.Total > 0 {
		b.WriteString(fmt.Sprintf("  (%.0f%% done)", m.stats.CompletionRate*100))
	}
	b.WriteString("\n\n")
}

func (m *dashModel) writeTasks(b *strings.Builder) {
	f := task.Filter{Category: m.category}
	f.Completed = m.completed

	shown := 0
	b.WriteString(sectionStyle.Render("Tasks") + "\n\n")
	for _, t := range m.tasks {
		if !f.Matches(&t) {
			continue
		}
		line := fmt.Sprintf("  [%d] %s %s", t.ID, t.Title, dimStyle.Render("("+t.Category+")"))
		if t.Completed {
			line = doneStyle.Render(fmt.Sprintf("  [%d] %s", t.ID, t.Title)) +
				" " + dimStyle.Render("("+t.Category+")")
		}
		b.WriteString(line + "\n")
		shown++
		if shown >= 20 {
			b.WriteString(dimStyle.Render("  ...") + "\n")
			break
		}
	}
	if shown == 0 {
		b.WriteString(dimStyle.Render("  No tasks match.") + "\n")
	}
	b.WriteString("\n")

	recent := recentlyCompleted(m.tasks, 5)
	if len(recent) > 0 {
		b.WriteString(sectionStyle.Render("Recently Completed") + "\n\n")
		for _, t := range recent {
			b.WriteString(fmt.Sprintf("  [%d] %s\n", t.ID, t.Title))
		}
		b.WriteString("\n")
	}
}

func (m *dashModel) writeConfig(b *strings.Builder) {
	b.WriteString(sectionStyle.Render("Store") + "\n\n")
	b.WriteString("  " + m.cfg.TasksFile + "\n\n")
}

func recentlyCompleted(tasks []task.Task, limit int) []task.Task {
	var done []task.Task
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil {
			done = append(done, t)
		}
	}
	sort.Slice(done, func(i, j int) bool {
		return done[i].CompletedAt.After(*done[j].CompletedAt)
	})
	if len(done) > limit {
		done = done[:limit]
	}
	return done
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func writeHelp(b *strings.Builder) {
	b.WriteString(sectionStyle.Render("Keyboard Shortcuts") + "\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  r, F5        Refresh\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  1            Show incomplete only\n")
	b.WriteString("  2            Show completed only\n")
	b.WriteString("  c            Cycle category filter\n")
	b.WriteString("  0            Clear filters\n\n")
}

func writeFooter(b *strings.Builder, interval time.Duration) {
	b.WriteString(dimStyle.Render(
		fmt.Sprintf("Press h for help | q to quit | Refreshing every %s", interval)) + "\n")
}

// IsTTY returns true if the writer is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
