package vm

import (
	"errors"
	"fmt"
)

// ErrClassNotFound is matched by every ClassNotFoundError.
var ErrClassNotFound = errors.New("class not found")

// ErrClassCircularity is returned when a class is its own ancestor.
var ErrClassCircularity = errors.New("class circularity")

// Runtime error kinds. A RuntimeError unwraps to one of these.
var (
	ErrDoesNotUnderstand  = errors.New("does not understand")
	ErrNotInstantiable    = errors.New("not instantiable")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrBlockCannotReturn  = errors.New("block cannot return")
	ErrWrongArgumentCount = errors.New("wrong argument count")
	ErrPrimitiveFailed    = errors.New("primitive failed")
	ErrUserError          = errors.New("error signalled")
	ErrUndefinedGlobal    = errors.New("undefined global")
)

var errBytecodeUnderflow = errors.New("bytecode underflow")

// ClassNotFoundError reports that no loader in a chain could supply a class.
// It is the normal answer while probing and is not logged as a failure.
type ClassNotFoundError struct {
	Name string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class not found: %s", e.Name)
}

// Is matches ErrClassNotFound.
func (e *ClassNotFoundError) Is(target error) bool {
	return target == ErrClassNotFound
}

// ClassFormatError reports an artifact that could not be turned into a class.
type ClassFormatError struct {
	Name  string
	Cause error
}

func (e *ClassFormatError) Error() string {
	return fmt.Sprintf("bad class %s: %v", e.Name, e.Cause)
}

func (e *ClassFormatError) Unwrap() error {
	return e.Cause
}

// RuntimeError is raised by the interpreter while executing a send.
type RuntimeError struct {
	Kind     error
	Selector string
	Receiver string // printString of the receiver
	Message  string
	Cause    error
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Receiver != "" && e.Selector != "" {
		msg = fmt.Sprintf("%s>>%s: %s", e.Receiver, e.Selector, msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the kind and the underlying cause, if any.
func (e *RuntimeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}
