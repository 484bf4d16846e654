package jit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/classforge/vm"
)

// ByteLoader is a vm.ClassLoader over in-memory artifacts. A name is looked
// up in the extra artifacts, then in the registry, and only then in the
// parent. Classes defined from local artifacts are cached per loader, so a
// loader never defines the same name twice while two loaders over the same
// bytes define two distinct classes.
type ByteLoader struct {
	id       uuid.UUID
	parent   vm.ClassLoader
	registry map[string][]byte
	extra    map[string][]byte

	mu      sync.Mutex
	classes map[string]*vm.Class
}

// NewByteLoader creates a loader. The maps are copied; the byte slices are
// shared and must not be modified afterwards. A nil parent means the
// bootstrap loader.
func NewByteLoader(parent vm.ClassLoader, registry, extra map[string][]byte) *ByteLoader {
	if parent == nil {
		parent = vm.Boot()
	}
	return &ByteLoader{
		id:       uuid.New(),
		parent:   parent,
		registry: copyArtifacts(registry),
		extra:    copyArtifacts(extra),
		classes:  make(map[string]*vm.Class),
	}
}

func copyArtifacts(in map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(in))
	for name, data := range in {
		out[name] = data
	}
	return out
}

// ID identifies the loader in logs and definition errors.
func (l *ByteLoader) ID() uuid.UUID {
	return l.id
}

// Parent implements vm.ClassLoader.
func (l *ByteLoader) Parent() vm.ClassLoader {
	return l.parent
}

// Defines reports whether name is one of the loader's local artifacts.
func (l *ByteLoader) Defines(name string) bool {
	_, ok := l.artifact(name)
	return ok
}

// Names returns the binary names of all local artifacts, sorted.
func (l *ByteLoader) Names() []string {
	seen := make(map[string]bool, len(l.extra)+len(l.registry))
	var out []string
	for _, set := range []map[string][]byte{l.extra, l.registry} {
		for name := range set {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (l *ByteLoader) artifact(name string) ([]byte, bool) {
	if data, ok := l.extra[name]; ok {
		return data, true
	}
	data, ok := l.registry[name]
	return data, ok
}

// LoadClass implements vm.ClassLoader. A name found nowhere yields a
// *vm.ClassNotFoundError from the parent chain, unwrapped. Failures to define
// a local artifact carry the loader ID.
func (l *ByteLoader) LoadClass(name string) (*vm.Class, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.load(name, make(map[string]bool))
	if err != nil && l.Defines(name) {
		return nil, fmt.Errorf("loader %s: %w", l.id, err)
	}
	return c, err
}

func (l *ByteLoader) load(name string, loading map[string]bool) (*vm.Class, error) {
	if c, ok := l.classes[name]; ok {
		return c, nil
	}
	data, ok := l.artifact(name)
	if !ok {
		return l.parent.LoadClass(name)
	}
	if loading[name] {
		return nil, fmt.Errorf("%w: %s", vm.ErrClassCircularity, name)
	}
	loading[name] = true
	defer delete(loading, name)

	c, err := vm.DefineBytes(l, func(n string) (*vm.Class, error) { return l.load(n, loading) }, name, data)
	if err != nil {
		return nil, err
	}
	log.Debugf("loader %s defined %s (%d bytes)", l.id, name, len(data))
	l.classes[name] = c
	return c, nil
}

var _ vm.ClassLoader = (*ByteLoader)(nil)
