package toolchain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/classforge/vm"
)

// PathLoader is a vm.ClassLoader that loads artifacts from a FileManager's
// ClassPath location. It delegates to its parent first and defines each
// class at most once.
type PathLoader struct {
	fm     FileManager
	parent vm.ClassLoader

	mu      sync.Mutex
	classes map[string]*vm.Class
}

// NewPathLoader creates a loader over the given class path directories.
// A nil parent means the bootstrap loader.
func NewPathLoader(classPath []string, parent vm.ClassLoader) *PathLoader {
	return NewFileManagerLoader(NewStandardFileManager(classPath, ""), parent)
}

// NewFileManagerLoader creates a loader over fm's ClassPath location.
func NewFileManagerLoader(fm FileManager, parent vm.ClassLoader) *PathLoader {
	if parent == nil {
		parent = vm.Boot()
	}
	return &PathLoader{fm: fm, parent: parent, classes: make(map[string]*vm.Class)}
}

// Parent implements vm.ClassLoader.
func (l *PathLoader) Parent() vm.ClassLoader {
	return l.parent
}

// LoadClass implements vm.ClassLoader.
func (l *PathLoader) LoadClass(name string) (*vm.Class, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(name, make(map[string]bool))
}

func (l *PathLoader) load(name string, loading map[string]bool) (*vm.Class, error) {
	if c, ok := l.classes[name]; ok {
		return c, nil
	}
	c, err := l.parent.LoadClass(name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, vm.ErrClassNotFound) {
		return nil, err
	}

	f, err := l.fm.Lookup(ClassPath, name, KindClass)
	if errors.Is(err, ErrNotFound) {
		return nil, &vm.ClassNotFoundError{Name: name}
	}
	if err != nil {
		return nil, err
	}
	if loading[name] {
		return nil, fmt.Errorf("%w: %s", vm.ErrClassCircularity, name)
	}
	loading[name] = true
	defer delete(loading, name)

	data, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.URI(), err)
	}
	c, err = vm.DefineBytes(l, func(n string) (*vm.Class, error) { return l.load(n, loading) }, name, data)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded %s from %s", name, f.URI())
	l.classes[name] = c
	return c, nil
}
