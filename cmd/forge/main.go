// Command forge compiles Maggie class sources to artifacts and runs them
// straight from memory.
package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/tliron/commonlog/simple"

	_ "github.com/chazu/classforge/compiler"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitGeneralError = 1
	// exitCompileError means diagnostics were already printed.
	exitCompileError = 3
)

// handledError carries an exit code for a failure already reported to the
// user.
type handledError struct {
	err  error
	code int
}

func (e *handledError) Error() string { return e.err.Error() }

func (e *handledError) Unwrap() error { return e.err }

func handled(err error) error {
	return &handledError{err: err, code: exitCompileError}
}

func exitCode(err error) (int, bool) {
	if err == nil {
		return exitSuccess, false
	}
	var h *handledError
	if errors.As(err, &h) {
		return h.code, true
	}
	return exitGeneralError, false
}

func main() {
	err := rootCmd.Execute()
	code, quiet := exitCode(err)
	if err != nil && !quiet {
		fmt.Fprintf(os.Stderr, "forge: %v\n", err)
	}
	os.Exit(code)
}
