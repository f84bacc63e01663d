// ABOUTME: Tab/window service contract and the in-memory Static implementation
// ABOUTME: Tabs enumerates open documents across all windows and opens new windows

package browser

import (
	"context"
	"slices"
	"sync"
)

// Document is one open tab.
type Document struct {
	Location string
	Private  bool
}

// Window records a window opened through Static.
type Window struct {
	Locations []string
	Focused   bool
}

// Tabs is the tab/window query service.
type Tabs interface {
	// QueryOpenDocuments lists open documents across all windows in
	// enumeration order.
	QueryOpenDocuments(ctx context.Context) ([]Document, error)

	// OpenWindow opens locations, in order, as one set of tabs. Static
	// records a new window whose tabs are exactly locations. Backends that
	// drive a real browser may do less: SessionFile leaves window placement
	// and focus to the system browser, and DevTools opens the tabs in the
	// browser's current window and ignores focused.
	OpenWindow(ctx context.Context, locations []string, focused bool) error
}

// Static serves a fixed document list and records opened windows.
type Static struct {
	mu        sync.Mutex
	documents []Document
	opened    []Window
	err       error
}

// NewStatic creates a Static with the given open documents.
func NewStatic(documents ...Document) *Static {
	return &Static{documents: documents}
}

// SetDocuments replaces the open documents.
func (s *Static) SetDocuments(documents ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = documents
}

// FailWith makes every later call return err. Pass nil to clear.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// QueryOpenDocuments returns a copy of the configured documents.
func (s *Static) QueryOpenDocuments(ctx context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.documents), nil
}

// OpenWindow records the window.
func (s *Static) OpenWindow(ctx context.Context, locations []string, focused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.opened = append(s.opened, Window{Locations: slices.Clone(locations), Focused: focused})
	return nil
}

// Opened returns the windows opened so far.
func (s *Static) Opened() []Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.opened)
}
