// Package menu implements the interactive numeric menu loop.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskdeck/internal/config"
	"github.com/nibzard/taskdeck/internal/task"
)

// Menu drives one numeric selection per interaction against the store.
// Input and output are injected so sessions can be scripted in tests.
type Menu struct {
	store  *task.Store
	cfg    *config.Config
	logger *log.Logger
	in     *bufio.Reader
	out    io.Writer
}

// New creates a menu over the given store.
func New(store *task.Store, cfg *config.Config, logger *log.Logger, in io.Reader, out io.Writer) *Menu {
	return &Menu{
		store:  store,
		cfg:    cfg,
		logger: logger,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Run executes the menu loop until the user exits or input ends. Exit
// triggers a final save.
func (m *Menu) Run(ctx context.Context) error {
	fmt.Fprintln(m.out, "Welcome to taskdeck!")
	fmt.Fprintf(m.out, "Tasks are saved to %s\n", m.store.Path())

	for {
		if err := ctx.Err(); err != nil {
			return m.exit()
		}

		m.printMenu()
		choice, err := m.readLine("Choose an option (0-11): ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return m.exit()
			}
			return err
		}

		n, err := strconv.Atoi(strings.TrimSpace(choice))
		if err != nil {
			fmt.Fprintln(m.out, "Please enter a valid number.")
			continue
		}

		if n == 0 {
			return m.exit()
		}

		if err := m.dispatch(n); err != nil {
			if errors.Is(err, io.EOF) {
				return m.exit()
			}
			return err
		}
	}
}

func (m *Menu) dispatch(choice int) error {
	switch choice {
	case 1:
		return m.addTask()
	case 2:
		m.viewTasks(task.Filter{})
		return nil
	case 3:
		return m.viewIncomplete()
	case 4:
		return m.markTask(true)
	case 5:
		return m.markTask(false)
	case 6:
		return m.editTask()
	case 7:
		return m.deleteTask()
	case 8:
		return m.searchTasks()
	case 9:
		m.showStatistics()
		return nil
	case 10:
		return m.filterByCategory()
	case 11:
		m.listCategories()
		return nil
	default:
		fmt.Fprintln(m.out, "Invalid choice. Please select a number between 0-11.")
		return nil
	}
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, strings.Repeat("=", 40))
	fmt.Fprintln(m.out, "TASKDECK")
	fmt.Fprintln(m.out, strings.Repeat("=", 40))
	fmt.Fprintln(m.out, " 1. Add Task")
	fmt.Fprintln(m.out, " 2. View All Tasks")
	fmt.Fprintln(m.out, " 3. View Incomplete Tasks Only")
	fmt.Fprintln(m.out, " 4. Mark Task as Completed")
	fmt.Fprintln(m.out, " 5. Mark Task as Incomplete")
	fmt.Fprintln(m.out, " 6. Edit Task")
	fmt.Fprintln(m.out, " 7. Delete Task")
	fmt.Fprintln(m.out, " 8. Search Tasks")
	fmt.Fprintln(m.out, " 9. View Statistics")
	fmt.Fprintln(m.out, "10. Filter by Category")
	fmt.Fprintln(m.out, "11. List Categories")
	fmt.Fprintln(m.out, " 0. Exit")
	fmt.Fprintln(m.out, strings.Repeat("=", 40))
}

func (m *Menu) addTask() error {
	title, err := m.readNonEmpty("Enter task title: ")
	if err != nil {
		return err
	}

	description, err := m.readLine("Enter task description (optional): ")
	if err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Available categories: %s\n", strings.Join(m.categories(), ", "))
	category, err := m.readLine(fmt.Sprintf("Enter category (or press Enter for %q): ", m.cfg.DefaultCategory))
	if err != nil {
		return err
	}
	if strings.TrimSpace(category) == "" {
		category = m.cfg.DefaultCategory
	}

	t, err := m.store.Add(title, description, category)
	if err != nil {
		m.reportError(err)
		return nil
	}
	m.logger.Debug("task added", "id", t.ID, "category", t.Category)
	fmt.Fprintf(m.out, "Task %q added with ID %d.\n", t.Title, t.ID)
	return nil
}

func (m *Menu) viewIncomplete() error {
	incomplete := false
	m.viewTasks(task.Filter{Completed: &incomplete})
	return nil
}

// viewTasks renders the filtered listing grouped by category; within a
// group incomplete tasks come first, then by id. Grouping lives here,
// not in the store.
func (m *Menu) viewTasks(f task.Filter) {
	tasks := m.store.List(f)
	if len(tasks) == 0 {
		fmt.Fprintln(m.out, "No tasks match.")
		return
	}

	groups := make(map[string][]task.Task)
	var order []string
	for _, t := range tasks {
		if _, ok := groups[t.Category]; !ok {
			order = append(order, t.Category)
		}
		groups[t.Category] = append(groups[t.Category], t)
	}

	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "YOUR TASKS")
	fmt.Fprintln(m.out, strings.Repeat("-", 40))
	for _, category := range order {
		group := groups[category]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Completed != group[j].Completed {
				return !group[i].Completed
			}
			return group[i].ID < group[j].ID
		})

		fmt.Fprintf(m.out, "\n%s\n", strings.ToUpper(category))
		for _, t := range group {
			fmt.Fprintf(m.out, "  %s\n", t)
			if t.Description != "" {
				fmt.Fprintf(m.out, "     Description: %s\n", t.Description)
			}
			fmt.Fprintf(m.out, "     Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
			if t.Completed && t.CompletedAt != nil {
				fmt.Fprintf(m.out, "     Completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04:05"))
			}
		}
	}
	fmt.Fprintln(m.out)
}

func (m *Menu) markTask(completed bool) error {
	if completed {
		incomplete := false
		m.viewTasks(task.Filter{Completed: &incomplete})
	} else {
		done := true
		m.viewTasks(task.Filter{Completed: &done})
	}
	if m.store.Len() == 0 {
		return nil
	}

	verb := "completed"
	if !completed {
		verb = "incomplete"
	}
	id, err := m.readID(fmt.Sprintf("Enter task ID to mark as %s: ", verb))
	if err != nil {
		return err
	}

	var t task.Task
	var opErr error
	if completed {
		t, opErr = m.store.MarkCompleted(id)
	} else {
		t, opErr = m.store.MarkIncomplete(id)
	}
	if opErr != nil {
		m.reportError(opErr)
		return nil
	}
	m.logger.Debug("task marked", "id", t.ID, "completed", completed)
	fmt.Fprintf(m.out, "Task %q marked as %s.\n", t.Title, verb)
	return nil
}

func (m *Menu) editTask() error {
	m.viewTasks(task.Filter{})
	if m.store.Len() == 0 {
		return nil
	}

	id, err := m.readID("Enter task ID to edit: ")
	if err != nil {
		return err
	}
	current, getErr := m.store.Get(id)
	if getErr != nil {
		m.reportError(getErr)
		return nil
	}

	fmt.Fprintf(m.out, "Editing task: %s\n", current.Title)
	fmt.Fprintln(m.out, "Leave blank to keep the current value.")

	var u task.Update
	title, err := m.readLine(fmt.Sprintf("Title [%s]: ", current.Title))
	if err != nil {
		return err
	}
	if strings.TrimSpace(title) != "" {
		u.Title = &title
	}

	description, err := m.readLine(fmt.Sprintf("Description [%s]: ", current.Description))
	if err != nil {
		return err
	}
	if strings.TrimSpace(description) != "" {
		u.Description = &description
	}

	category, err := m.readLine(fmt.Sprintf("Category [%s]: ", current.Category))
	if err != nil {
		return err
	}
	if strings.TrimSpace(category) != "" {
		u.Category = &category
	}

	t, editErr := m.store.Edit(id, u)
	if editErr != nil {
		m.reportError(editErr)
		return nil
	}
	m.logger.Debug("task edited", "id", t.ID)
	fmt.Fprintf(m.out, "Task %q updated.\n", t.Title)
	return nil
}

func (m *Menu) deleteTask() error {
	m.viewTasks(task.Filter{})
	if m.store.Len() == 0 {
		return nil
	}

	id, err := m.readID("Enter task ID to delete: ")
	if err != nil {
		return err
	}

	if m.cfg.ConfirmDelete {
		confirm, err := m.readLine("Are you sure you want to delete this task? (y/N): ")
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(confirm)) {
		case "y", "yes":
		default:
			fmt.Fprintln(m.out, "Delete cancelled.")
			return nil
		}
	}

	if delErr := m.store.Delete(id); delErr != nil {
		m.reportError(delErr)
		return nil
	}
	m.logger.Debug("task deleted", "id", id)
	fmt.Fprintf(m.out, "Task %d deleted.\n", id)
	return nil
}

func (m *Menu) searchTasks() error {
	query, err := m.readNonEmpty("Enter search query: ")
	if err != nil {
		return err
	}

	matches := m.store.Search(query)
	if len(matches) == 0 {
		fmt.Fprintln(m.out, "No tasks match your search query.")
		return nil
	}

	fmt.Fprintf(m.out, "\nFound %d matching task(s):\n", len(matches))
	for _, t := range matches {
		fmt.Fprintf(m.out, "  %s\n", t)
		if t.Description != "" {
			fmt.Fprintf(m.out, "     Description: %s\n", t.Description)
		}
	}
	return nil
}

func (m *Menu) showStatistics() {
	stats := m.store.Statistics()

	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "TASK STATISTICS")
	fmt.Fprintln(m.out, strings.Repeat("-", 30))
	fmt.Fprintf(m.out, "Total Tasks: %d\n", stats.Total)
	fmt.Fprintf(m.out, "Completed: %d\n", stats.Completed)
	fmt.Fprintf(m.out, "Incomplete: %d\n", stats.Incomplete)
	if stats.Total > 0 {
		fmt.Fprintf(m.out, "Completion Rate: %.1f%%\n", stats.CompletionRate*100)
	}

	if len(stats.Categories) == 0 {
		return
	}
	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(m.out, "\nBy Category:")
	for _, name := range names {
		cs := stats.Categories[name]
		fmt.Fprintf(m.out, "  %s: %d/%d completed\n", name, cs.Completed, cs.Total)
	}
}

func (m *Menu) filterByCategory() error {
	fmt.Fprintf(m.out, "Available categories: %s\n", strings.Join(m.categories(), ", "))
	category, err := m.readNonEmpty("Enter category to filter by: ")
	if err != nil {
		return err
	}
	m.viewTasks(task.Filter{Category: category})
	return nil
}

func (m *Menu) listCategories() {
	fmt.Fprintf(m.out, "Available categories: %s\n", strings.Join(m.categories(), ", "))
}

// categories merges configured suggestions into the store's category
// list, keeping the store-side ordering contract.
func (m *Menu) categories() []string {
	out := m.store.Categories()
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[strings.ToLower(c)] = true
	}
	for _, c := range m.cfg.Categories {
		if !seen[strings.ToLower(c)] {
			seen[strings.ToLower(c)] = true
			out = append(out, c)
		}
	}
	return out
}

func (m *Menu) exit() error {
	if err := m.store.Save(); err != nil {
		m.reportError(err)
	} else {
		fmt.Fprintln(m.out, "Tasks saved.")
	}
	fmt.Fprintln(m.out, "Goodbye!")
	return nil
}

// reportError maps the store error taxonomy to user messages. Nothing
// here is fatal: the operation is aborted and the loop continues.
func (m *Menu) reportError(err error) {
	var notFound *task.NotFoundError
	var invalid *task.ValidationError
	var persist *task.PersistError

	switch {
	case errors.As(err, &notFound):
		fmt.Fprintf(m.out, "Task with ID %d not found.\n", notFound.ID)
	case errors.As(err, &invalid):
		fmt.Fprintf(m.out, "Invalid input: %s\n", invalid)
	case errors.As(err, &persist):
		m.logger.Error("saving tasks failed", "path", persist.Path, "err", persist.Err)
		fmt.Fprintln(m.out, "Warning: your change is applied in memory but could not be saved.")
	default:
		fmt.Fprintf(m.out, "Error: %v\n", err)
	}
}

// readLine prompts and reads one line. io.EOF is returned untouched so
// the caller can treat end of input as exit.
func (m *Menu) readLine(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	line, err := m.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readNonEmpty reprompts until the user enters a non-blank value.
func (m *Menu) readNonEmpty(prompt string) (string, error) {
	for {
		line, err := m.readLine(prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		fmt.Fprintln(m.out, "Input cannot be empty. Please try again.")
	}
}

// readID reprompts until the user enters a numeric id.
func (m *Menu) readID(prompt string) (int, error) {
	for {
		line, err := m.readNonEmpty(prompt)
		if err != nil {
			return 0, err
		}
		id, convErr := strconv.Atoi(line)
		if convErr == nil {
			return id, nil
		}
		fmt.Fprintln(m.out, "Please enter a valid task ID.")
	}
}
