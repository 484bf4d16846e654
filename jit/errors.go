package jit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/classforge/toolchain"
	"github.com/chazu/classforge/vm"
)

// ErrInvalidCompilation is matched by every *CompilationError.
var ErrInvalidCompilation = errors.New("invalid compilation")

// CompilationError reports that a unit did not compile into anything
// loadable: the toolchain reported errors, produced no artifact, or failed
// outright.
type CompilationError struct {
	// Name is the binary name that was requested.
	Name string

	// Diagnostics holds everything the toolchain reported, in order.
	Diagnostics []toolchain.Diagnostic

	// Transcript is the free-form toolchain output.
	Transcript string

	// Empty is set when the toolchain succeeded without producing output.
	Empty bool

	// Cause is set when the toolchain itself failed.
	Cause error
}

func (e *CompilationError) Error() string {
	var sb strings.Builder
	switch {
	case e.Cause != nil:
		fmt.Fprintf(&sb, "compile %s: %v", e.Name, e.Cause)
	case e.Empty:
		fmt.Fprintf(&sb, "compile %s: no output produced", e.Name)
	default:
		n := 0
		for _, d := range e.Diagnostics {
			if d.Severity == toolchain.SeverityError {
				n++
			}
		}
		fmt.Fprintf(&sb, "compile %s: %d error(s)", e.Name, n)
	}
	if len(e.Diagnostics) > 0 {
		sb.WriteByte('\n')
		sb.WriteString(toolchain.Format(e.Diagnostics))
	}
	return sb.String()
}

// Is matches ErrInvalidCompilation.
func (e *CompilationError) Is(target error) bool {
	return target == ErrInvalidCompilation
}

// Unwrap returns the toolchain failure, if any.
func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// InstantiationError reports that a loaded class could not be instantiated
// with new.
type InstantiationError struct {
	Class *vm.Class
	Cause error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiate %s: %v", e.Class.FullName(), e.Cause)
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}
