// ABOUTME: Terminal rendering of saved identifiers and transient result banners
// ABOUTME: Implements notify.View; banners clear themselves after BannerDuration

package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// BannerDuration is how long a success or error banner stays visible.
const BannerDuration = 1300 * time.Millisecond

// DefaultSuccessMessage is shown when a success banner has no text.
const DefaultSuccessMessage = "Saved!"

type bannerKind int

const (
	bannerNone bannerKind = iota
	bannerSuccess
	bannerError
)

// Terminal writes the identifier list to an io.Writer. With Redraw set, it
// clears the screen before each render, for watch mode.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	redraw bool

	identifiers []string
	banner      string
	kind        bannerKind
	bannerTimer *time.Timer
	duration    time.Duration
}

// NewTerminal creates a Terminal writing to out.
func NewTerminal(out io.Writer, redraw bool) *Terminal {
	return &Terminal{
		out:      out,
		redraw:   redraw,
		duration: BannerDuration,
	}
}

// Refresh replaces the rendered list.
func (t *Terminal) Refresh(ctx context.Context, identifiers []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identifiers = append([]string(nil), identifiers...)
	return t.renderLocked()
}

// Success shows a success banner. Empty msg shows DefaultSuccessMessage.
func (t *Terminal) Success(msg string) error {
	if msg == "" {
		msg = DefaultSuccessMessage
	}
	return t.showBanner(bannerSuccess, msg)
}

// Error shows an error banner with err's message.
func (t *Terminal) Error(err error) error {
	return t.showBanner(bannerError, err.Error())
}

func (t *Terminal) showBanner(kind bannerKind, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.kind = kind
	t.banner = msg
	if t.bannerTimer != nil {
		t.bannerTimer.Stop()
	}
	if t.redraw {
		t.bannerTimer = time.AfterFunc(t.duration, t.hideBanner)
		return t.renderLocked()
	}
	// One-shot output: print the banner alone and forget it.
	err := t.writeBanner()
	t.kind = bannerNone
	return err
}

func (t *Terminal) hideBanner() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kind = bannerNone
	t.banner = ""
	t.renderLocked()
}

func (t *Terminal) renderLocked() error {
	var b strings.Builder
	if t.redraw {
		// Clear screen, cursor home.
		b.WriteString("\033[2J\033[H")
	}

	b.WriteString(color.New(color.Bold).Sprint("Saved tab sets"))
	b.WriteString("\n")
	if len(t.identifiers) == 0 {
		b.WriteString(color.HiBlackString("  (none)"))
		b.WriteString("\n")
	}
	for i, id := range t.identifiers {
		fmt.Fprintf(&b, "  %s %s\n", color.HiBlackString("%2d.", i+1), color.CyanString(id))
	}

	if _, err := io.WriteString(t.out, b.String()); err != nil {
		return err
	}
	if t.redraw && t.kind != bannerNone {
		return t.writeBanner()
	}
	return nil
}

func (t *Terminal) writeBanner() error {
	var line string
	switch t.kind {
	case bannerSuccess:
		line = color.New(color.FgGreen).Sprint("✔ " + t.banner)
	case bannerError:
		line = color.New(color.FgRed, color.Bold).Sprint("✘ " + t.banner)
	default:
		return nil
	}
	_, err := fmt.Fprintln(t.out, line)
	return err
}

// Close stops a pending banner timer.
func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bannerTimer != nil {
		t.bannerTimer.Stop()
	}
}
