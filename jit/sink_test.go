package jit

import (
	"errors"
	"testing"

	"github.com/chazu/classforge/toolchain"
)

func TestSourceUnit(t *testing.T) {
	u := NewSourceUnit("acme.tools.Greeter", "Greeter subclass: Object")
	if u.Name() != "acme.tools.Greeter" || u.Kind() != toolchain.KindSource {
		t.Errorf("unit = %s/%s", u.Name(), u.Kind())
	}
	if u.URI() != "string:///acme/tools/Greeter.mag" {
		t.Errorf("URI = %q", u.URI())
	}
	text, err := u.CharContent()
	if err != nil || text != "Greeter subclass: Object" {
		t.Errorf("CharContent = %q, %v", text, err)
	}
}

func TestOutputSinkSealing(t *testing.T) {
	s := newOutputSink("acme.Greeter")
	if s.Kind() != toolchain.KindClass || s.URI() != "bytes:///acme/Greeter.mclass" {
		t.Errorf("sink = %s %s", s.Kind(), s.URI())
	}
	if s.Sealed() {
		t.Error("new sink is sealed")
	}

	w, err := s.OpenWriter()
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if s.Sealed() {
		t.Error("sink sealed while a writer is open")
	}
	if got := string(s.Bytes()); got != "abc" {
		t.Errorf("Bytes before close = %q, want abc", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !s.Sealed() {
		t.Fatal("sink not sealed after close")
	}

	first := s.Bytes()
	first[0] = 'X'
	if got := string(s.Bytes()); got != "abc" {
		t.Errorf("Bytes after mutating a copy = %q, want abc", got)
	}
	if _, err := w.Write([]byte("more")); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Write after close err = %v, want ErrWriterClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if got := string(s.Bytes()); got != "abc" || s.Len() != 3 {
		t.Errorf("Bytes after second close = %q", got)
	}
}

func TestOutputSinkReopenAppends(t *testing.T) {
	s := newOutputSink("acme.Greeter")
	for _, chunk := range []string{"one", "two"} {
		w, err := s.OpenWriter()
		if err != nil {
			t.Fatalf("OpenWriter: %v", err)
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if got := string(s.Bytes()); got != "onetwo" {
		t.Errorf("Bytes = %q, want onetwo", got)
	}
	if !s.Sealed() {
		t.Error("sink not sealed")
	}
}
