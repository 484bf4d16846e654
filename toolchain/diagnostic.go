package toolchain

import (
	"fmt"
	"strings"
	"sync"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

// String implements the Stringer interface.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "note"
}

// Position is a 1-based line and column in a source unit.
type Position struct {
	Line   int
	Column int
}

// String implements the Stringer interface.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Diagnostic is one message reported by a toolchain.
type Diagnostic struct {
	Severity Severity
	Source   string // unit name
	Pos      Position
	Message  string
}

// String renders the diagnostic as "unit:line:col: severity: message".
func (d Diagnostic) String() string {
	if d.Source == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	if d.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.Source, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%s: %s: %s", d.Source, d.Pos, d.Severity, d.Message)
}

// DiagnosticListener receives diagnostics as they are reported.
type DiagnosticListener interface {
	Report(d Diagnostic)
}

// Collector is a DiagnosticListener that keeps every diagnostic in report
// order. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements DiagnosticListener.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.diags...)
}

// Errors returns the diagnostics with error severity.
func (c *Collector) Errors() []Diagnostic {
	return c.filter(SeverityError)
}

// Warnings returns the diagnostics with warning severity.
func (c *Collector) Warnings() []Diagnostic {
	return c.filter(SeverityWarning)
}

func (c *Collector) filter(s Severity) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any error was reported.
func (c *Collector) HasErrors() bool {
	return len(c.Errors()) > 0
}

// Len returns the number of diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}

// String renders every diagnostic on its own line.
func (c *Collector) String() string {
	return Format(c.Diagnostics())
}

// Format renders diagnostics one per line.
func Format(diags []Diagnostic) string {
	var sb strings.Builder
	for i, d := range diags {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}

// ListenerFunc adapts a function to DiagnosticListener.
type ListenerFunc func(d Diagnostic)

// Report implements DiagnosticListener.
func (f ListenerFunc) Report(d Diagnostic) {
	f(d)
}
