package jit

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/toolchain"
)

// ErrWriterClosed is returned by writes to a closed sink writer.
var ErrWriterClosed = errors.New("jit: write to closed output")

// OutputSink collects the bytes of one artifact. Every writer returned by
// OpenWriter appends to the same buffer; the sink is sealed while no writer
// is open and at least one writer has been closed.
type OutputSink struct {
	name string

	mu     sync.Mutex
	buf    bytes.Buffer
	open   int
	closed bool
}

func newOutputSink(name string) *OutputSink {
	return &OutputSink{name: name}
}

// Name implements toolchain.FileObject.
func (s *OutputSink) Name() string { return s.name }

// Kind implements toolchain.FileObject.
func (s *OutputSink) Kind() toolchain.Kind { return toolchain.KindClass }

// URI implements toolchain.FileObject.
func (s *OutputSink) URI() string {
	return "bytes:///" + classfile.RelativePath(s.name, classfile.Extension)
}

// OpenWriter implements toolchain.OutputFile. Reopening a sink appends to
// the bytes already written.
func (s *OutputSink) OpenWriter() (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open++
	return &sinkWriter{sink: s}, nil
}

// Bytes returns a copy of the content written so far.
func (s *OutputSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

// Len returns the number of bytes written so far.
func (s *OutputSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Sealed reports whether every writer opened on the sink has been closed.
func (s *OutputSink) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed && s.open == 0
}

type sinkWriter struct {
	sink   *OutputSink
	closed bool
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	s := w.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.closed {
		return 0, ErrWriterClosed
	}
	return s.buf.Write(p)
}

// Close seals the sink once no other writer is open. Closing twice is a
// no-op.
func (w *sinkWriter) Close() error {
	s := w.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	s.open--
	s.closed = true
	return nil
}

var _ toolchain.OutputFile = (*OutputSink)(nil)
