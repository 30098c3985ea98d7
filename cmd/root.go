// Package cmd implements the CLI command structure for taskdeck.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskdeck/internal/config"
	"github.com/nibzard/taskdeck/internal/logging"
	"github.com/nibzard/taskdeck/internal/menu"
	"github.com/nibzard/taskdeck/internal/task"
	"github.com/nibzard/taskdeck/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the taskdeck CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskdeck", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	logger := logging.NewFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)

	// Determine the subcommand; no args means the interactive menu.
	subcommand := "menu"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "menu":
		return menuCommand(ctx, cfg, logger)
	case "add":
		return addCommand(cfg, logger, remainingArgs)
	case "ls":
		return lsCommand(cfg, logger, remainingArgs)
	case "done":
		return markCommand(cfg, logger, remainingArgs, true)
	case "undone":
		return markCommand(cfg, logger, remainingArgs, false)
	case "edit":
		return editCommand(cfg, logger, remainingArgs)
	case "rm":
		return rmCommand(cfg, logger, remainingArgs)
	case "search":
		return searchCommand(cfg, logger, remainingArgs)
	case "stats":
		return statsCommand(cfg, logger)
	case "categories":
		return categoriesCommand(cfg, logger)
	case "tui":
		return ui.RunTUI(ctx, cfg)
	case "doctor":
		return doctorCommand(cfg, remainingArgs)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// openStore opens the configured store file. A corrupted file is
// reported and the session continues on an empty store; the loss is
// explicit, never silent.
func openStore(cfg *config.Config, logger *log.Logger) (*task.Store, error) {
	store, err := task.Open(cfg.TasksFile)
	if err != nil {
		var corrupt *task.CorruptError
		if errors.As(err, &corrupt) {
			logger.Warn("task store is corrupted, starting with an empty store",
				"path", corrupt.Path, "err", corrupt.Err)
			fmt.Fprintln(os.Stderr, "Warning: the task store could not be read; previous tasks may be unavailable.")
			return store, nil
		}
		return nil, err
	}
	return store, nil
}

// menuCommand runs the interactive menu loop.
func menuCommand(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	return menu.New(store, cfg, logger, os.Stdin, os.Stdout).Run(ctx)
}

// addCommand adds a single task non-interactively.
func addCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskdeck add", flag.ContinueOnError)
	title := fs.String("title", "", "Task title (required)")
	desc := fs.String("desc", "", "Task description")
	category := fs.String("category", "", "Task category")

	if err := fs.Parse(args); err != nil {
		return err
	}
	// Bare arguments after the flags form the title too.
	if *title == "" && len(fs.Args()) > 0 {
		*title = strings.Join(fs.Args(), " ")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if *category == "" {
		*category = cfg.DefaultCategory
	}

	t, err := store.Add(*title, *desc, *category)
	if err != nil {
		return err
	}
	logger.Debug("task added", "id", t.ID)
	fmt.Printf("Added task %d: %s (%s)\n", t.ID, t.Title, t.Category)
	return nil
}

// lsCommand lists tasks grouped by category.
func lsCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskdeck ls", flag.ContinueOnError)
	completedOnly := fs.Bool("completed", false, "Show completed tasks only")
	incompleteOnly := fs.Bool("incomplete", false, "Show incomplete tasks only")
	category := fs.String("category", "", "Filter by category (case-insensitive)")
	verbose := fs.Bool("v", false, "Show more details")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *completedOnly && *incompleteOnly {
		return fmt.Errorf("-completed and -incomplete are mutually exclusive")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	f := task.Filter{Category: *category}
	if *completedOnly {
		done := true
		f.Completed = &done
	}
	if *incompleteOnly {
		pending := false
		f.Completed = &pending
	}

	tasks := store.List(f)
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}
	printGrouped(os.Stdout, tasks, *verbose)
	return nil
}

// markCommand marks a task completed or incomplete.
func markCommand(cfg *config.Config, logger *log.Logger, args []string, completed bool) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	var t task.Task
	if completed {
		t, err = store.MarkCompleted(id)
	} else {
		t, err = store.MarkIncomplete(id)
	}
	if err != nil {
		return err
	}
	logger.Debug("task marked", "id", t.ID, "completed", completed)
	if completed {
		fmt.Printf("Completed task %d: %s\n", t.ID, t.Title)
	} else {
		fmt.Printf("Reopened task %d: %s\n", t.ID, t.Title)
	}
	return nil
}

// editCommand applies a partial edit.
func editCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskdeck edit", flag.ContinueOnError)
	title := fs.String("title", "", "New title")
	desc := fs.String("desc", "", "New description")
	category := fs.String("category", "", "New category")

	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs.Args())
	if err != nil {
		return err
	}

	var u task.Update
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			u.Title = title
		case "desc":
			u.Description = desc
		case "category":
			u.Category = category
		}
	})

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	t, err := store.Edit(id, u)
	if err != nil {
		return err
	}
	logger.Debug("task edited", "id", t.ID)
	fmt.Printf("Updated task %d: %s\n", t.ID, t.Title)
	return nil
}

// rmCommand deletes a task, with confirmation unless forced.
func rmCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskdeck rm", flag.ContinueOnError)
	force := fs.Bool("f", false, "Delete without confirmation")

	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs.Args())
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.ConfirmDelete && !*force {
		t, err := store.Get(id)
		if err != nil {
			return err
		}
		fmt.Printf("Delete task %d %q? (y/N): ", t.ID, t.Title)
		var answer string
		fmt.Fscanln(os.Stdin, &answer)
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	logger.Debug("task deleted", "id", id)
	fmt.Printf("Deleted task %d.\n", id)
	return nil
}

// searchCommand searches title, description, and category.
func searchCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	keyword := strings.Join(args, " ")
	matches := store.Search(keyword)
	if len(matches) == 0 {
		fmt.Println("No tasks match.")
		return nil
	}
	for _, t := range matches {
		fmt.Printf("  %s\n", t)
	}
	return nil
}

// statsCommand prints aggregate statistics.
func statsCommand(cfg *config.Config, logger *log.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	stats := store.Statistics()
	fmt.Printf("Total: %d  Completed: %d  Incomplete: %d\n",
		stats.Total, stats.Completed, stats.Incomplete)
	if stats.Total > 0 {
		fmt.Printf("Completion rate: %.1f%%\n", stats.CompletionRate*100)
	}

	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cs := stats.Categories[name]
		fmt.Printf("  %s: %d/%d completed\n", name, cs.Completed, cs.Total)
	}
	return nil
}

// categoriesCommand lists suggested plus in-use categories.
func categoriesCommand(cfg *config.Config, logger *log.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(store.Categories(), "\n"))
	return nil
}

// doctorCommand checks the store file, schema validity, and config.
func doctorCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskdeck doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("Taskdeck Doctor")
	fmt.Println("===============")
	fmt.Println()

	allOK := true

	fmt.Printf("Store file: %s\n", cfg.TasksFile)
	data, err := os.ReadFile(cfg.TasksFile)
	switch {
	case os.IsNotExist(err):
		fmt.Println("  ⚠️  Not found (will be created on first add)")
	case err != nil:
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	default:
		result := task.ValidateFile(data)
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠️  %s\n", w)
		}
		if result.Valid {
			fmt.Println("  ✅ Valid")
		} else {
			fmt.Println("  ❌ Validation failed:")
			for _, e := range result.Errors {
				fmt.Printf("     - %v\n", e)
			}
			allOK = false
		}
		if *verbose && result.Valid {
			store, openErr := task.Open(cfg.TasksFile)
			if openErr == nil {
				fmt.Printf("  Tasks: %d\n", store.Len())
				for _, t := range store.List(task.Filter{}) {
					fmt.Printf("    %s\n", t)
				}
			}
		}
	}
	fmt.Println()

	fmt.Println("Config:")
	fmt.Printf("  Default category: %s\n", cfg.DefaultCategory)
	fmt.Printf("  Confirm delete: %v\n", cfg.ConfirmDelete)
	fmt.Printf("  Log level: %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Println()

	if allOK {
		fmt.Println("✅ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("taskdeck version %s\n", Version)
	return nil
}

// idArg parses the single positional task id argument.
func idArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one task ID argument")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid task ID %q", args[0])
	}
	return id, nil
}

// printGrouped prints tasks grouped by category in first-seen order,
// incomplete before completed within each group.
func printGrouped(w io.Writer, tasks []task.Task, verbose bool) {
	groups := make(map[string][]task.Task)
	var order []string
	for _, t := range tasks {
		if _, ok := groups[t.Category]; !ok {
			order = append(order, t.Category)
		}
		groups[t.Category] = append(groups[t.Category], t)
	}

	for _, category := range order {
		group := groups[category]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Completed != group[j].Completed {
				return !group[i].Completed
			}
			return group[i].ID < group[j].ID
		})

		fmt.Fprintf(w, "%s (%d):\n", category, len(group))
		for _, t := range group {
			fmt.Fprintf(w, "  %s\n", t)
			if verbose {
				if t.Description != "" {
					fmt.Fprintf(w, "      Description: %s\n", t.Description)
				}
				fmt.Fprintf(w, "      Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
				if t.Completed && t.CompletedAt != nil {
					fmt.Fprintf(w, "      Completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04:05"))
				}
			}
		}
		fmt.Fprintln(w)
	}
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Taskdeck - A local JSON-backed task manager")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskdeck [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  menu          Interactive menu (default command)")
	fmt.Fprintln(w, "  add           Add a task (-title, -desc, -category)")
	fmt.Fprintln(w, "  ls            List tasks (-completed|-incomplete, -category, -v)")
	fmt.Fprintln(w, "  done ID       Mark a task completed")
	fmt.Fprintln(w, "  undone ID     Mark a task incomplete")
	fmt.Fprintln(w, "  edit ID       Edit a task (-title, -desc, -category)")
	fmt.Fprintln(w, "  rm ID         Delete a task (-f to skip confirmation)")
	fmt.Fprintln(w, "  search WORD   Search title, description, and category")
	fmt.Fprintln(w, "  stats         Show statistics")
	fmt.Fprintln(w, "  categories    List categories")
	fmt.Fprintln(w, "  tui           Launch terminal dashboard")
	fmt.Fprintln(w, "  doctor        Check store file and config")
	fmt.Fprintln(w, "  version       Show version information")
	fmt.Fprintln(w, "  help          Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
