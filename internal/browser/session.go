// ABOUTME: Session-file backed Tabs: open documents come from a JSON/YAML session export
// ABOUTME: Restored windows are opened in the system browser via open-golang

package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/skratchdot/open-golang/open"
	"gopkg.in/yaml.v3"
)

// sessionFile mirrors a browser session export. YAML is a superset of JSON,
// so one decoder reads both.
type sessionFile struct {
	Windows []struct {
		Tabs []struct {
			URL       string `yaml:"url"`
			Incognito bool   `yaml:"incognito"`
		} `yaml:"tabs"`
	} `yaml:"windows"`
}

// SessionFile reads open documents from a session file on every query.
type SessionFile struct {
	path   string
	opener func(location string) error
	logger *slog.Logger
}

// NewSessionFile creates a SessionFile reading path.
func NewSessionFile(path string, logger *slog.Logger) *SessionFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionFile{
		path:   path,
		opener: open.Run,
		logger: logger.With("component", "session"),
	}
}

// QueryOpenDocuments parses the session file. Windows and tabs keep file order.
func (s *SessionFile) QueryOpenDocuments(ctx context.Context) ([]Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var session sessionFile
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}

	var docs []Document
	for _, w := range session.Windows {
		for _, tab := range w.Tabs {
			docs = append(docs, Document{Location: tab.URL, Private: tab.Incognito})
		}
	}
	return docs, nil
}

// OpenWindow hands each location to the system browser in order. The
// system browser decides window placement and focus.
func (s *SessionFile) OpenWindow(ctx context.Context, locations []string, focused bool) error {
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.opener(loc); err != nil {
			return fmt.Errorf("opening %s: %w", loc, err)
		}
	}
	s.logger.Info("opened window", "tabs", len(locations), "focused", focused)
	return nil
}
