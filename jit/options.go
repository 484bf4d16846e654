package jit

import (
	"github.com/chazu/classforge/toolchain"
	"github.com/chazu/classforge/vm"
)

// Option configures a Compiler or a single compilation.
type Option func(*options)

type options struct {
	parent    vm.ClassLoader
	classPath []string
	extra     map[string][]byte
}

// WithParent sets the loader compiled classes delegate to.
func WithParent(parent vm.ClassLoader) Option {
	return func(o *options) { o.parent = parent }
}

// WithClassPath sets the search path, an OS path list of directories
// holding class artifacts. It is used to resolve references at compile time
// and, when no parent is given, to load them at run time.
func WithClassPath(path string) Option {
	return func(o *options) { o.classPath = toolchain.ParseClassPath(path) }
}

// WithExtraArtifacts supplies precompiled artifacts, binary name to bytes.
// They take precedence over the artifacts of the compilation itself.
func WithExtraArtifacts(extra map[string][]byte) Option {
	return func(o *options) {
		if o.extra == nil {
			o.extra = make(map[string][]byte, len(extra))
		}
		for name, data := range extra {
			o.extra[name] = data
		}
	}
}
