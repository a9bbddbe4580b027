// Package console prints colored one-line messages for humans at a terminal.
//
// Warnings are yellow, errors red and informational messages blue. The
// destination and the use of color are configurable so the same calls work
// for files, pipes and tests.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// ANSI foreground colors.
const (
	Yellow = "\x1b[33m"
	Red    = "\x1b[31m"
	Blue   = "\x1b[34m"
	Reset  = "\x1b[0m"
)

// Mode selects when color escapes are emitted.
type Mode string

const (
	ModeAlways Mode = "always"
	ModeNever  Mode = "never"
	ModeAuto   Mode = "auto"
)

// ParseMode validates a mode string. The empty string means ModeAuto.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeAlways:
		return ModeAlways, nil
	case ModeNever:
		return ModeNever, nil
	default:
		return "", fmt.Errorf("unknown color mode %q", raw)
	}
}

// Printer writes colored messages to a single destination.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces color on or off.
func WithColor(enabled bool) Option {
	return func(p *Printer) { p.color = enabled }
}

// WithColorMode resolves mode against the printer's destination.
func WithColorMode(mode Mode) Option {
	return func(p *Printer) {
		switch mode {
		case ModeAlways:
			p.color = true
		case ModeNever:
			p.color = false
		default:
			p.color = IsTerminal(p.out) && os.Getenv("NO_COLOR") == ""
		}
	}
}

// New returns a printer writing to out with color enabled.
func New(out io.Writer, opts ...Option) *Printer {
	if out == nil {
		out = io.Discard
	}
	p := &Printer{out: out, color: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Warning prints msg in yellow.
func (p *Printer) Warning(msg string) { p.print(Yellow, msg) }

// Error prints msg in red.
func (p *Printer) Error(msg string) { p.print(Red, msg) }

// Info prints msg in blue.
func (p *Printer) Info(msg string) { p.print(Blue, msg) }

// Warningf formats according to format and prints the result in yellow.
func (p *Printer) Warningf(format string, args ...any) { p.Warning(fmt.Sprintf(format, args...)) }

// Errorf formats according to format and prints the result in red.
func (p *Printer) Errorf(format string, args ...any) { p.Error(fmt.Sprintf(format, args...)) }

// Infof formats according to format and prints the result in blue.
func (p *Printer) Infof(format string, args ...any) { p.Info(fmt.Sprintf(format, args...)) }

// Colored reports whether the printer emits escape sequences.
func (p *Printer) Colored() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.color
}

func (p *Printer) print(color, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.color {
		_, _ = io.WriteString(p.out, color+msg+Reset+"\n")
		return
	}
	_, _ = io.WriteString(p.out, msg+"\n")
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	stdMu sync.RWMutex
	std   = New(os.Stdout)
)

// Default returns the package-level printer.
func Default() *Printer {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// SetDefault replaces the package-level printer.
func SetDefault(p *Printer) {
	if p == nil {
		return
	}
	stdMu.Lock()
	defer stdMu.Unlock()
	std = p
}

// Warning prints msg in yellow on the default printer.
func Warning(msg string) { Default().Warning(msg) }

// Error prints msg in red on the default printer.
func Error(msg string) { Default().Error(msg) }

// Info prints msg in blue on the default printer.
func Info(msg string) { Default().Info(msg) }
