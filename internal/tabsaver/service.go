// ABOUTME: Capture/restore/delete of tab collections
// ABOUTME: Coordinates the tab service, collection store, and identifier registry

package tabsaver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/tabsaver/internal/browser"
	"github.com/2389/tabsaver/internal/collection"
	"github.com/2389/tabsaver/internal/registry"
	"github.com/2389/tabsaver/internal/store"
)

// DefaultTimeout bounds each operation end to end.
const DefaultTimeout = 10 * time.Second

// Options configures a Service.
type Options struct {
	// Timeout bounds each operation. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxRetries is passed to the registry. Zero means registry.DefaultMaxRetries.
	MaxRetries int
	Logger     *slog.Logger
}

// CaptureResult reports what Capture stored.
type CaptureResult struct {
	// Saved is false when no non-private documents were open; nothing was written.
	Saved      bool
	Identifier string
	Locations  []string
}

// Service implements capture, restore, and delete.
type Service struct {
	tabs        browser.Tabs
	collections *collection.Store
	registry    *registry.Registry
	timeout     time.Duration
	logger      *slog.Logger
}

// NewService wires a Service over kv and tabs.
func NewService(kv store.KV, tabs browser.Tabs, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	regOpts := []registry.Option{registry.WithLogger(logger)}
	if opts.MaxRetries > 0 {
		regOpts = append(regOpts, registry.WithMaxRetries(opts.MaxRetries))
	}

	return &Service{
		tabs:        tabs,
		collections: collection.New(kv),
		registry:    registry.New(kv, regOpts...),
		timeout:     timeout,
		logger:      logger.With("component", "tabsaver"),
	}
}

// Registry exposes the identifier registry for readers such as the notifier.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Capture saves the non-private open documents under the identifier parsed
// from rawInput. The collection is written before the registry entry.
func (s *Service) Capture(ctx context.Context, rawInput string) (CaptureResult, error) {
	id, err := ParseIdentifier(rawInput)
	if err != nil {
		return CaptureResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.tabs.QueryOpenDocuments(ctx)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("querying open documents: %w", err)
	}

	locations := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Private {
			continue
		}
		locations = append(locations, d.Location)
	}

	if len(locations) == 0 {
		s.logger.Info("nothing to capture", "identifier", id, "documents", len(docs))
		return CaptureResult{Identifier: id}, nil
	}

	if err := s.collections.Put(ctx, id, locations); err != nil {
		return CaptureResult{}, err
	}
	// A failure here leaves a collection with no registry entry.
	if err := s.registry.Add(ctx, id); err != nil {
		return CaptureResult{}, fmt.Errorf("registering %q: %w", id, err)
	}

	s.logger.Info("captured tabs", "identifier", id, "tabs", len(locations))
	return CaptureResult{Saved: true, Identifier: id, Locations: locations}, nil
}

// Restore opens a focused window with the collection stored under the
// identifier parsed from rawInput. It returns false without error when
// nothing is stored.
func (s *Service) Restore(ctx context.Context, rawInput string) (bool, error) {
	id, err := ParseIdentifier(rawInput)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	locations, err := s.collections.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("nothing to restore", "identifier", id)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.tabs.OpenWindow(ctx, locations, true); err != nil {
		return false, fmt.Errorf("opening window for %q: %w", id, err)
	}

	s.logger.Info("restored tabs", "identifier", id, "tabs", len(locations))
	return true, nil
}

// Delete removes the identifier parsed from rawInput from the registry and
// then removes its collection.
func (s *Service) Delete(ctx context.Context, rawInput string) error {
	id, err := ParseIdentifier(rawInput)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.registry.Remove(ctx, id); err != nil {
		return fmt.Errorf("unregistering %q: %w", id, err)
	}
	// A failure here leaves an unlisted collection behind.
	if err := s.collections.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("deleted collection", "identifier", id)
	return nil
}

// List returns the saved identifiers in insertion order.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.registry.List(ctx)
}
