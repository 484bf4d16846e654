package jit

import (
	"errors"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/classforge/config"
	"github.com/chazu/classforge/toolchain"
	"github.com/chazu/classforge/vm"
)

var log = commonlog.GetLogger("classforge.jit")

// Compiler compiles one source unit per call and loads the requested class
// from the result. A Compiler holds no state between calls and is safe for
// concurrent use.
type Compiler struct {
	// Toolchain compiles the units. Nil means the toolchain registered
	// under config.DefaultToolchain.
	Toolchain toolchain.Toolchain

	// ClassPath is searched for artifacts the source refers to.
	ClassPath []string

	// Parent is the loader compiled classes delegate to. Nil means a
	// toolchain.PathLoader over ClassPath.
	Parent vm.ClassLoader

	// Extra artifacts are visible to every compilation.
	Extra map[string][]byte

	// MaxDepth bounds nested sends while instantiating. Zero means
	// vm.DefaultMaxDepth.
	MaxDepth int

	Logger commonlog.Logger
}

// New creates a Compiler using the default toolchain.
func New(opts ...Option) *Compiler {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &Compiler{ClassPath: o.classPath, Parent: o.parent, Extra: o.extra, Logger: log}
}

// FromConfig creates a Compiler from a loaded configuration.
func FromConfig(cfg *config.Config) (*Compiler, error) {
	tc, err := toolchain.Lookup(cfg.Compiler.Toolchain)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		Toolchain: tc,
		ClassPath: cfg.ClassPath(),
		MaxDepth:  cfg.Runtime.MaxDepth,
		Logger:    log,
	}, nil
}

func (c *Compiler) logger() commonlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log
}

func (c *Compiler) options(opts []Option) *options {
	o := &options{parent: c.Parent, classPath: c.ClassPath}
	if len(c.Extra) > 0 {
		WithExtraArtifacts(c.Extra)(o)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CompiledClass compiles source as the unit name and loads the class name
// from the result.
//
// A unit that fails to compile or compiles to nothing yields a
// *CompilationError. When the unit compiles but neither its artifacts nor
// the parent supply name, the error is a *vm.ClassNotFoundError.
func (c *Compiler) CompiledClass(source, name string, opts ...Option) (*vm.Class, error) {
	o := c.options(opts)
	mgr, err := c.compile(source, name, o)
	if err != nil {
		return nil, err
	}
	return c.load(mgr, name, o)
}

// CompiledInstance is CompiledClass followed by sending new to the class.
// A failure of new is returned as an *InstantiationError wrapping the
// runtime error.
func (c *Compiler) CompiledInstance(source, name string, opts ...Option) (vm.Value, error) {
	cls, err := c.CompiledClass(source, name, opts...)
	if err != nil {
		return nil, err
	}
	return c.instantiate(cls)
}

// CompiledClassData compiles source and returns the artifact bytes for
// name without loading them.
func (c *Compiler) CompiledClassData(source, name string, opts ...Option) ([]byte, error) {
	mgr, err := c.compile(source, name, c.options(opts))
	if err != nil {
		return nil, err
	}
	sink, ok := mgr.Sink(name)
	if !ok {
		return nil, &vm.ClassNotFoundError{Name: name}
	}
	return sink.Bytes(), nil
}

// compile runs the toolchain over a single in-memory unit. The returned
// manager holds at least one sealed artifact.
func (c *Compiler) compile(source, name string, o *options) (*Manager, error) {
	tc := c.Toolchain
	if tc == nil {
		var err error
		if tc, err = toolchain.Lookup(config.DefaultToolchain); err != nil {
			return nil, &CompilationError{Name: name, Cause: err}
		}
	}

	mgr := NewManager(toolchain.NewStandardFileManager(o.classPath, ""))
	defer func() {
		if err := mgr.Close(); err != nil {
			c.logger().Warningf("close file manager for %s: %v", name, err)
		}
	}()

	diags := toolchain.NewCollector()
	var transcript strings.Builder
	task := &toolchain.Task{
		Units:       []toolchain.SourceFile{NewSourceUnit(name, source)},
		FileManager: mgr,
		Diagnostics: diags,
		Transcript:  &transcript,
		ClassPath:   o.classPath,
	}

	err := tc.Run(task)
	switch {
	case errors.Is(err, toolchain.ErrCompilationFailed), err == nil && diags.HasErrors():
		return nil, &CompilationError{Name: name, Diagnostics: diags.Diagnostics(), Transcript: transcript.String()}
	case err != nil:
		return nil, &CompilationError{Name: name, Diagnostics: diags.Diagnostics(), Transcript: transcript.String(), Cause: err}
	}

	// Checked before the requested name is looked at: an empty result is a
	// compilation failure even when the name is also wrong.
	if mgr.IsEmpty() {
		return nil, &CompilationError{Name: name, Diagnostics: diags.Diagnostics(), Transcript: transcript.String(), Empty: true}
	}
	if open := mgr.unsealed(); len(open) > 0 {
		return nil, &CompilationError{
			Name:        name,
			Diagnostics: diags.Diagnostics(),
			Transcript:  transcript.String(),
			Cause:       errors.New("outputs left open: " + strings.Join(open, ", ")),
		}
	}

	c.logger().Debugf("compiled %s with %s: %s", name, tc.Name(), strings.Join(mgr.Names(), ", "))
	for _, d := range diags.Warnings() {
		c.logger().Infof("%s", d)
	}
	return mgr, nil
}

// load defines name through a fresh loader over the compilation's
// artifacts.
func (c *Compiler) load(mgr *Manager, name string, o *options) (*vm.Class, error) {
	parent := o.parent
	if parent == nil {
		parent = toolchain.NewPathLoader(o.classPath, nil)
	}
	loader := NewByteLoader(parent, mgr.Artifacts(), o.extra)
	cls, err := loader.LoadClass(name)
	if err != nil {
		return nil, err
	}
	c.logger().Debugf("loaded %s through loader %s", cls.FullName(), loader.ID())
	return cls, nil
}

func (c *Compiler) instantiate(cls *vm.Class) (vm.Value, error) {
	in := vm.NewInterpreter()
	if c.MaxDepth > 0 {
		in.MaxDepth = c.MaxDepth
	}
	obj, err := in.Send(cls, "new")
	if err != nil {
		return nil, &InstantiationError{Class: cls, Cause: err}
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// Package-level entry points
// ---------------------------------------------------------------------------

var (
	stdOnce sync.Once
	std     *Compiler
)

// Default returns the compiler used by the package-level functions. Its
// class path comes from the CLASSFORGE_PATH environment variable.
func Default() *Compiler {
	stdOnce.Do(func() {
		std = &Compiler{ClassPath: config.Default().ClassPath(), Logger: log}
	})
	return std
}

// GetCompiledClass compiles source and loads the class name from it.
func GetCompiledClass(source, name string) (*vm.Class, error) {
	return Default().CompiledClass(source, name)
}

// GetCompiledClassIn is GetCompiledClass with an explicit parent loader and
// search path. A nil parent and an empty path fall back to the defaults.
func GetCompiledClassIn(source, name string, parent vm.ClassLoader, classPath string) (*vm.Class, error) {
	var opts []Option
	if parent != nil {
		opts = append(opts, WithParent(parent))
	}
	if classPath != "" {
		opts = append(opts, WithClassPath(classPath))
	}
	return Default().CompiledClass(source, name, opts...)
}

// GetCompiledInstance compiles source and answers a new instance of name.
func GetCompiledInstance(source, name string, opts ...Option) (vm.Value, error) {
	return Default().CompiledInstance(source, name, opts...)
}

// GetCompiledClassData compiles source and answers the artifact bytes of
// name.
func GetCompiledClassData(source, name string, opts ...Option) ([]byte, error) {
	return Default().CompiledClassData(source, name, opts...)
}
