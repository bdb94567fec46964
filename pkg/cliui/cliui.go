// Package cliui provides reusable terminal UI helpers (spinners, step indicators,
// markdown rendering) for pitwall CLI commands.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	NameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// spinnerFrames matches bubbletea's spinner.Dot pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	s := startSpinner(w, msg)
	err := fn()
	s.stop(err)
	return err
}

// Steps shows one spinner line per stage of a longer operation whose stages
// are only known as they are reached. Next finishes the current line with ✓
// and starts a new one; Done finishes the last line with ✓ or ✗.
// A Steps is not safe for concurrent use.
type Steps struct {
	w       io.Writer
	current *spinner
}

// NewSteps returns a Steps writing to w.
func NewSteps(w io.Writer) *Steps {
	return &Steps{w: w}
}

// Next completes the running step, if any, and starts msg.
func (s *Steps) Next(msg string) {
	if s.current != nil {
		s.current.stop(nil)
	}
	s.current = startSpinner(s.w, msg)
}

// Done completes the running step with the mark for err.
func (s *Steps) Done(err error) {
	if s.current == nil {
		return
	}
	s.current.stop(err)
	s.current = nil
}

type spinner struct {
	w     io.Writer
	msg   string
	start time.Time
	done  chan struct{}
	exit  chan struct{}
	mu    sync.Mutex
}

func startSpinner(w io.Writer, msg string) *spinner {
	s := &spinner{
		w:     w,
		msg:   msg,
		start: time.Now(),
		done:  make(chan struct{}),
		exit:  make(chan struct{}),
	}

	// Run spinner animation in background
	go func() {
		defer close(s.exit)
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			s.mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	return s
}

func (s *spinner) stop(err error) {
	elapsed := time.Since(s.start)
	close(s.done)
	<-s.exit

	// Clear the spinner line and print final result
	s.mu.Lock()
	fmt.Fprintf(s.w, "\r  %s %s %s\n",
		Mark(err),
		s.msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	s.mu.Unlock()
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
