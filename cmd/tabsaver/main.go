// ABOUTME: Entry point for the tabsaver CLI
// ABOUTME: Saves open tabs under an identifier, restores or deletes saved sets, watches the list

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/tabsaver/internal/browser"
	"github.com/2389/tabsaver/internal/config"
	"github.com/2389/tabsaver/internal/notify"
	"github.com/2389/tabsaver/internal/store"
	"github.com/2389/tabsaver/internal/tabsaver"
	"github.com/2389/tabsaver/internal/view"
)

// version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the config file.
// Priority: TABSAVER_CONFIG env var > XDG_CONFIG_HOME/tabsaver/config.yaml > ~/.config/tabsaver/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TABSAVER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "tabsaver", "config.yaml")
}

// getDataPath returns the tabsaver data directory.
// Priority: XDG_DATA_HOME/tabsaver > ~/.local/share/tabsaver
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "tabsaver")
}

func usage() {
	fmt.Println("Usage: tabsaver <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  save <identifier>     Save the open tabs under identifier")
	fmt.Println("  load <identifier>     Open a saved set in a new window")
	fmt.Println("  delete <identifier>   Delete a saved set")
	fmt.Println("  list                  List saved identifiers")
	fmt.Println("  watch                 Show saved identifiers and follow changes")
	fmt.Println("  init                  Write a default config file")
	fmt.Println("  version               Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "save":
		err = withApp(false, func(a *app) error { return runSave(ctx, a, args) })
	case "load":
		err = withApp(false, func(a *app) error { return runLoad(ctx, a, args) })
	case "delete":
		err = withApp(false, func(a *app) error { return runDelete(ctx, a, args) })
	case "list":
		err = withApp(false, func(a *app) error { return runList(ctx, a) })
	case "watch":
		err = withApp(true, func(a *app) error { return runWatch(ctx, a) })
	case "init":
		err = runInit(os.Stdout)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		var verr *tabsaver.ValidationError
		if !errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app holds everything a command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	kv     store.KV
	svc    *tabsaver.Service
	out    io.Writer
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath(), getDataPath())
	if errors.Is(err, os.ErrNotExist) {
		return config.FromEnv(getDataPath())
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newTabs(cfg *config.Config, logger *slog.Logger) browser.Tabs {
	if cfg.Browser.Backend == config.BackendDevTools {
		return browser.NewDevTools(cfg.Browser.DevToolsURL, cfg.Operations.Timeout, logger)
	}
	return browser.NewSessionFile(cfg.Browser.SessionFile, logger)
}

// withApp opens the store, runs fn, and releases everything. The store's
// file watcher only runs for long-lived commands.
func withApp(long bool, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg.Logging)
	defer closeLog()
	slog.SetDefault(logger)

	kv, err := store.NewSQLiteStore(cfg.Database.Path, store.Options{
		Namespace: cfg.Store.Namespace,
		Watch:     cfg.Store.Watch && long,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	a := &app{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		svc: tabsaver.NewService(kv, newTabs(cfg, logger), tabsaver.Options{
			Timeout:    cfg.Operations.Timeout,
			MaxRetries: cfg.Registry.MaxRetries,
			Logger:     logger,
		}),
		out: os.Stdout,
	}
	return fn(a)
}

func runSave(ctx context.Context, a *app, args []string) error {
	term := view.NewTerminal(a.out, false)

	// Identifiers may contain spaces: "tabsaver save reading list".
	res, err := a.svc.Capture(ctx, strings.Join(args, " "))
	var verr *tabsaver.ValidationError
	if errors.As(err, &verr) {
		term.Error(verr)
		return err
	}
	if err != nil {
		return fmt.Errorf("saving tabs: %w", err)
	}

	if !res.Saved {
		color.New(color.FgHiBlack).Fprintln(a.out, "No tabs to save.")
		return nil
	}
	return term.Success("")
}

func runLoad(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tabsaver load <identifier>")
	}
	id := strings.Join(args, " ")

	ok, err := a.svc.Restore(ctx, id)
	var verr *tabsaver.ValidationError
	if errors.As(err, &verr) {
		view.NewTerminal(a.out, false).Error(verr)
		return err
	}
	if err != nil {
		return fmt.Errorf("loading %q: %w", id, err)
	}
	if !ok {
		color.New(color.FgHiBlack).Fprintf(a.out, "Nothing saved under %q.\n", id)
	}
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tabsaver delete <identifier>")
	}
	id := strings.Join(args, " ")

	err := a.svc.Delete(ctx, id)
	var verr *tabsaver.ValidationError
	if errors.As(err, &verr) {
		view.NewTerminal(a.out, false).Error(verr)
		return err
	}
	if err != nil {
		return fmt.Errorf("deleting %q: %w", id, err)
	}
	return nil
}

func runList(ctx context.Context, a *app) error {
	ids, err := a.svc.List(ctx)
	if err != nil {
		return fmt.Errorf("listing identifiers: %w", err)
	}
	return view.NewTerminal(a.out, false).Refresh(ctx, ids)
}

func runWatch(ctx context.Context, a *app) error {
	fmt.Fprint(a.out, "\033[?25l")       // hide cursor
	defer fmt.Fprint(a.out, "\033[?25h") // show cursor on exit

	term := view.NewTerminal(a.out, true)
	defer term.Close()

	n := notify.New(a.kv, a.svc.Registry(), watchView(term), a.logger)

	// The notifier skips an absent registry, so the first frame is drawn here.
	ids, err := a.svc.List(ctx)
	if err != nil {
		return fmt.Errorf("reading identifiers: %w", err)
	}
	if err := term.Refresh(ctx, ids); err != nil {
		return err
	}

	return n.Run(ctx)
}

// watchUpdatedMessage is the banner shown when another save or delete changes the list.
const watchUpdatedMessage = "List updated."

// watchView redraws the list on each change and flags the change with a
// banner that clears itself.
func watchView(term *view.Terminal) notify.View {
	return notify.ViewFunc(func(ctx context.Context, identifiers []string) error {
		if err := term.Refresh(ctx, identifiers); err != nil {
			return err
		}
		return term.Success(watchUpdatedMessage)
	})
}

func runInit(out io.Writer) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	data, err := config.Default(getDataPath()).Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Config written to %s\n", path)
	return nil
}
