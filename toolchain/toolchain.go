package toolchain

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrCompilationFailed is returned by Toolchain.Run when any unit produced
// an error diagnostic.
var ErrCompilationFailed = errors.New("compilation failed")

// Task is one invocation of a toolchain.
type Task struct {
	Units       []SourceFile
	FileManager FileManager
	Diagnostics DiagnosticListener

	// Transcript receives free-form toolchain output. May be nil.
	Transcript io.Writer

	// ClassPath is informational: the search path the FileManager's
	// ClassPath location was built from.
	ClassPath []string
}

// Report sends d to the task's listener, if any.
func (t *Task) Report(d Diagnostic) {
	if t.Diagnostics != nil {
		t.Diagnostics.Report(d)
	}
}

// Printf writes to the task transcript, if any.
func (t *Task) Printf(format string, args ...any) {
	if t.Transcript != nil {
		fmt.Fprintf(t.Transcript, format, args...)
	}
}

// Toolchain compiles source units. Run reports every problem through the
// task's listener and returns ErrCompilationFailed (possibly wrapped) when
// any error was reported. Other errors mean the toolchain itself failed.
type Toolchain interface {
	Name() string
	Run(task *Task) error
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Toolchain)
)

// Register makes a toolchain available by name. Registering the same name
// twice panics.
func Register(tc Toolchain) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := tc.Name()
	if _, dup := registry[name]; dup {
		panic("toolchain: Register called twice for " + name)
	}
	registry[name] = tc
}

// Lookup returns the toolchain registered under name.
func Lookup(name string) (Toolchain, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tc, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no toolchain named %q (have %v)", name, namesLocked())
	}
	return tc, nil
}

// Names returns the registered toolchain names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
