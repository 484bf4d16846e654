package jit

import (
	"sort"
	"sync"

	"github.com/chazu/classforge/toolchain"
)

// Manager is a toolchain.FileManager that keeps class output in memory.
// Requests for a ClassOutput class artifact get an OutputSink, recorded
// under the artifact's binary name; every other request goes to the
// wrapped manager unchanged.
type Manager struct {
	toolchain.FileManager

	mu    sync.Mutex
	sinks map[string]*OutputSink
}

// NewManager wraps delegate. A nil delegate is a StandardFileManager with
// an empty class path and no output directory.
func NewManager(delegate toolchain.FileManager) *Manager {
	if delegate == nil {
		delegate = toolchain.NewStandardFileManager(nil, "")
	}
	return &Manager{FileManager: delegate, sinks: make(map[string]*OutputSink)}
}

// OutputFor implements toolchain.FileManager. Asking twice for the same
// binary name returns the same sink.
func (m *Manager) OutputFor(loc toolchain.Location, binaryName string, kind toolchain.Kind, sibling toolchain.FileObject) (toolchain.OutputFile, error) {
	if loc != toolchain.ClassOutput || kind != toolchain.KindClass {
		return m.FileManager.OutputFor(loc, binaryName, kind, sibling)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sink, ok := m.sinks[binaryName]
	if !ok {
		sink = newOutputSink(binaryName)
		m.sinks[binaryName] = sink
		log.Debugf("capturing %s in memory", binaryName)
	}
	return sink, nil
}

// IsEmpty reports whether no artifact has been requested yet.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sinks) == 0
}

// Sink returns the sink recorded for binaryName.
func (m *Manager) Sink(binaryName string) (*OutputSink, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sinks[binaryName]
	return s, ok
}

// Artifacts returns a snapshot of every captured artifact, binary name to
// bytes.
func (m *Manager) Artifacts() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.sinks))
	for name, s := range m.sinks {
		out[name] = s.Bytes()
	}
	return out
}

// Names returns the captured binary names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sinks))
	for name := range m.sinks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// unsealed returns the names of sinks with a writer still open or never
// opened.
func (m *Manager) unsealed() []string {
	var out []string
	for _, name := range m.Names() {
		if s, _ := m.Sink(name); !s.Sealed() {
			out = append(out, name)
		}
	}
	return out
}

var _ toolchain.FileManager = (*Manager)(nil)
