// ABOUTME: Tests for tabsaver CLI commands
// ABOUTME: Runs save/load/delete/list against an in-memory store and static tabs

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/tabsaver/internal/browser"
	"github.com/2389/tabsaver/internal/config"
	"github.com/2389/tabsaver/internal/store"
	"github.com/2389/tabsaver/internal/tabsaver"
	"github.com/2389/tabsaver/internal/view"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func newTestApp(t *testing.T, docs ...browser.Document) (*app, *bytes.Buffer, *browser.Static) {
	t.Helper()
	kv := store.NewMockStore("")
	tabs := browser.NewStatic(docs...)
	out := &bytes.Buffer{}
	return &app{
		logger: slog.Default(),
		kv:     kv,
		svc:    tabsaver.NewService(kv, tabs, tabsaver.Options{}),
		out:    out,
	}, out, tabs
}

func TestRunSave_JoinsArgs(t *testing.T) {
	a, out, _ := newTestApp(t, browser.Document{Location: "https://a.example"})
	ctx := context.Background()

	require.NoError(t, runSave(ctx, a, []string{"reading", "list"}))
	assert.Contains(t, out.String(), "Saved!")

	ids, err := a.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"reading list"}, ids)
}

func TestRunSave_ValidationBanner(t *testing.T) {
	a, out, _ := newTestApp(t, browser.Document{Location: "https://a.example"})

	err := runSave(context.Background(), a, nil)
	var verr *tabsaver.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, out.String(), "Identifier field is empty.")
}

func TestRunSave_NothingToSave(t *testing.T) {
	a, out, _ := newTestApp(t, browser.Document{Location: "https://secret.example", Private: true})

	require.NoError(t, runSave(context.Background(), a, []string{"work"}))
	assert.Contains(t, out.String(), "No tabs to save.")
}

func TestRunLoadAndDelete(t *testing.T) {
	a, out, tabs := newTestApp(t, browser.Document{Location: "https://a.example"})
	ctx := context.Background()

	require.NoError(t, runSave(ctx, a, []string{"work"}))
	require.NoError(t, runLoad(ctx, a, []string{"work"}))
	assert.Len(t, tabs.Opened(), 1)

	require.NoError(t, runDelete(ctx, a, []string{"work"}))
	out.Reset()
	require.NoError(t, runLoad(ctx, a, []string{"work"}))
	assert.Contains(t, out.String(), `Nothing saved under "work".`)

	assert.Error(t, runLoad(ctx, a, nil))
	assert.Error(t, runDelete(ctx, a, nil))
}

func TestRunLoadAndDelete_ReservedKeyBanner(t *testing.T) {
	a, out, tabs := newTestApp(t, browser.Document{Location: "https://a.example"})
	ctx := context.Background()

	require.NoError(t, runSave(ctx, a, []string{"work"}))
	out.Reset()

	var verr *tabsaver.ValidationError
	require.ErrorAs(t, runLoad(ctx, a, []string{"tabsaver.identifiers"}), &verr)
	require.ErrorAs(t, runDelete(ctx, a, []string{"tabsaver.identifiers"}), &verr)
	assert.Contains(t, out.String(), "Identifier tabsaver.identifiers is reserved.")
	assert.Empty(t, tabs.Opened())

	ids, err := a.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, ids)
}

func TestRunList(t *testing.T) {
	a, out, _ := newTestApp(t, browser.Document{Location: "https://a.example"})
	ctx := context.Background()

	require.NoError(t, runSave(ctx, a, []string{"work"}))
	require.NoError(t, runSave(ctx, a, []string{"home"}))
	out.Reset()

	require.NoError(t, runList(ctx, a))
	assert.Contains(t, out.String(), "1. work")
	assert.Contains(t, out.String(), "2. home")
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABSAVER_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	var out bytes.Buffer
	require.NoError(t, runInit(&out))

	path := filepath.Join(dir, "tabsaver", "config.yaml")
	_, err := os.Stat(path)
	require.NoError(t, err)

	cfg, err := config.Load(path, "/unused")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "tabsaver", "tabsaver.db"), cfg.Database.Path)

	assert.Error(t, runInit(&out), "refuses to overwrite")
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabsaver.log")
	logger, closeLog := setupLogger(config.LoggingConfig{Level: "info", File: path})

	logger.Info("hello", "k", "v")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &colorHandler{out: &buf, mu: new(sync.Mutex), level: slog.LevelInfo}
	logger := slog.New(h).With("component", "test")

	logger.Debug("hidden")
	logger.WithGroup("g").Warn("shown", "k", "v")

	got := buf.String()
	assert.NotContains(t, got, "hidden")
	assert.Contains(t, got, "WRN shown component=test g.k=v")
}

func TestWatchView_ShowsBannerThenClears(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	term := view.NewTerminal(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}), true)
	defer term.Close()

	require.NoError(t, watchView(term).Refresh(context.Background(), []string{"work"}))

	mu.Lock()
	got := buf.String()
	buf.Reset()
	mu.Unlock()
	assert.Contains(t, got, "work")
	assert.Contains(t, got, watchUpdatedMessage)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(buf.String(), "work")
	}, 3*time.Second, 50*time.Millisecond, "list redrawn when the banner clears")

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, buf.String(), watchUpdatedMessage)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
