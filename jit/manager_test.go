package jit

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/classforge/toolchain"
)

// recordingManager is a FileManager that records what reaches it.
type recordingManager struct {
	outputs []string
	lookups []string
	closed  bool
}

var errRecorded = errors.New("recorded")

func (m *recordingManager) OutputFor(loc toolchain.Location, name string, kind toolchain.Kind, _ toolchain.FileObject) (toolchain.OutputFile, error) {
	m.outputs = append(m.outputs, loc.String()+" "+name+" "+kind.String())
	return nil, errRecorded
}

func (m *recordingManager) Lookup(loc toolchain.Location, name string, kind toolchain.Kind) (toolchain.InputFile, error) {
	m.lookups = append(m.lookups, name)
	return nil, toolchain.ErrNotFound
}

func (m *recordingManager) List(toolchain.Location, string, toolchain.Kind) ([]toolchain.FileObject, error) {
	return nil, nil
}

func (m *recordingManager) Close() error {
	m.closed = true
	return nil
}

func writeSink(t *testing.T, out toolchain.OutputFile, data string) {
	t.Helper()
	w, err := out.OpenWriter()
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestManagerCapturesClassOutput(t *testing.T) {
	rec := &recordingManager{}
	m := NewManager(rec)
	if !m.IsEmpty() {
		t.Fatal("new manager is not empty")
	}

	a, err := m.OutputFor(toolchain.ClassOutput, "acme.B", toolchain.KindClass, nil)
	if err != nil {
		t.Fatalf("OutputFor: %v", err)
	}
	writeSink(t, a, "bbb")
	again, err := m.OutputFor(toolchain.ClassOutput, "acme.B", toolchain.KindClass, nil)
	if err != nil {
		t.Fatalf("OutputFor: %v", err)
	}
	if again != a {
		t.Error("second OutputFor returned a different sink")
	}
	b, _ := m.OutputFor(toolchain.ClassOutput, "acme.A", toolchain.KindClass, nil)
	writeSink(t, b, "aa")

	if m.IsEmpty() {
		t.Error("manager empty after output")
	}
	if diff := cmp.Diff([]string{"acme.A", "acme.B"}, m.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	want := map[string][]byte{"acme.A": []byte("aa"), "acme.B": []byte("bbb")}
	if diff := cmp.Diff(want, m.Artifacts()); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}
	if len(m.unsealed()) != 0 {
		t.Errorf("unsealed = %v", m.unsealed())
	}
	if len(rec.outputs) != 0 {
		t.Errorf("class output reached the delegate: %v", rec.outputs)
	}
}

func TestManagerForwardsEverythingElse(t *testing.T) {
	rec := &recordingManager{}
	m := NewManager(rec)

	if _, err := m.OutputFor(toolchain.ClassOutput, "notes", toolchain.KindOther, nil); !errors.Is(err, errRecorded) {
		t.Errorf("non-class output err = %v, want the delegate's", err)
	}
	if _, err := m.Lookup(toolchain.ClassPath, "acme.Dep", toolchain.KindClass); !errors.Is(err, toolchain.ErrNotFound) {
		t.Errorf("Lookup err = %v", err)
	}
	if err := m.Close(); err != nil || !rec.closed {
		t.Errorf("Close = %v, closed = %v", err, rec.closed)
	}
	if diff := cmp.Diff([]string{"CLASS_OUTPUT notes other"}, rec.outputs); diff != "" {
		t.Errorf("forwarded outputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"acme.Dep"}, rec.lookups); diff != "" {
		t.Errorf("forwarded lookups mismatch (-want +got):\n%s", diff)
	}
	if !m.IsEmpty() {
		t.Error("forwarded requests were recorded")
	}
}

func TestManagerDefaultDelegateWritesNothing(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.OutputFor(toolchain.ClassOutput, "notes", toolchain.KindOther, nil); !errors.Is(err, toolchain.ErrUnsupportedLocation) {
		t.Errorf("err = %v, want ErrUnsupportedLocation", err)
	}
}

func TestManagerUnsealed(t *testing.T) {
	m := NewManager(nil)
	out, _ := m.OutputFor(toolchain.ClassOutput, "acme.Open", toolchain.KindClass, nil)
	if _, err := out.OpenWriter(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"acme.Open"}, m.unsealed()); diff != "" {
		t.Errorf("unsealed mismatch (-want +got):\n%s", diff)
	}
}
