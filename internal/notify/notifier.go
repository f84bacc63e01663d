// ABOUTME: Change notifier that re-renders the identifier list on registry changes
// ABOUTME: Consumes the store's change stream; the view depends on it, never the reverse

package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/tabsaver/internal/registry"
	"github.com/2389/tabsaver/internal/store"
)

// View renders the identifier list.
type View interface {
	Refresh(ctx context.Context, identifiers []string) error
}

// ViewFunc adapts a function to View.
type ViewFunc func(ctx context.Context, identifiers []string) error

// Refresh calls f.
func (f ViewFunc) Refresh(ctx context.Context, identifiers []string) error {
	return f(ctx, identifiers)
}

// Notifier refreshes a View whenever the registry key changes in the
// watched namespace.
type Notifier struct {
	kv        store.KV
	registry  *registry.Registry
	view      View
	namespace string
	logger    *slog.Logger
}

// New creates a Notifier. It watches kv's own namespace.
func New(kv store.KV, reg *registry.Registry, view View, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		kv:        kv,
		registry:  reg,
		view:      view,
		namespace: kv.Namespace(),
		logger:    logger.With("component", "notifier"),
	}
}

// Refresh reads the registry and renders it. A registry that was never
// written leaves the view untouched.
func (n *Notifier) Refresh(ctx context.Context) error {
	ids, found, err := n.registry.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading identifiers: %w", err)
	}
	if !found {
		return nil
	}
	if err := n.view.Refresh(ctx, ids); err != nil {
		return fmt.Errorf("refreshing view: %w", err)
	}
	return nil
}

// Handle refreshes the view if change touches the registry in the watched
// namespace. It reports whether a refresh happened.
func (n *Notifier) Handle(ctx context.Context, change store.Change) (bool, error) {
	if change.Namespace != n.namespace || !change.HasKey(registry.Key) {
		return false, nil
	}
	n.logger.Debug("registry changed", "change_id", change.ID)
	if err := n.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Run subscribes to the change stream and handles changes until ctx is done
// or the store closes. Refresh failures are logged and do not stop the loop.
func (n *Notifier) Run(ctx context.Context) error {
	changes, subID := n.kv.Subscribe(ctx)
	n.logger.Debug("notifier subscribed", "sub_id", subID, "namespace", n.namespace)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if _, err := n.Handle(ctx, change); err != nil {
				n.logger.Error("refresh failed", "change_id", change.ID, "error", err)
			}
		}
	}
}
