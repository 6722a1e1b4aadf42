// Package ui provides terminal UI helpers.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner wraps a terminal spinner for loading states.
type Spinner struct {
	s *spinner.Spinner
	w io.Writer
}

// NewSpinner creates a spinner writing to w with the given message. When w
// is a file the spinner animates only if that file is a terminal; other
// writers follow whether stdout is one.
func NewSpinner(w io.Writer, msg string) *Spinner {
	opt := spinner.WithWriter(w)
	if f, ok := w.(*os.File); ok {
		opt = spinner.WithWriterFile(f)
	}
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, opt)
	s.Suffix = "  " + msg
	_ = s.Color("cyan")
	return &Spinner{s: s, w: w}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop halts the spinner and clears the line.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// Success stops the spinner and prints a green check.
func (sp *Spinner) Success(msg string) {
	sp.s.Stop()
	Green.Fprintf(sp.w, "  ✓ %s\n", msg)
}

// Fail stops the spinner and prints a red cross.
func (sp *Spinner) Fail(msg string) {
	sp.s.Stop()
	Red.Fprintf(sp.w, "  ✗ %s\n", msg)
}

// Shared palette.
var (
	Cyan  = color.New(color.FgCyan, color.Bold)
	Dim   = color.New(color.FgHiBlack)
	Green = color.New(color.FgGreen)
	Red   = color.New(color.FgRed)
)
