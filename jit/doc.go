// Package jit compiles source text into classes entirely in memory.
//
// A call builds a SourceUnit for the text, runs a toolchain with a Manager
// that captures every artifact in an OutputSink instead of a file, and hands
// the captured artifacts to a fresh ByteLoader. The loader resolves names
// from caller-supplied extra artifacts first, then from the artifacts of the
// compilation, and only then asks its parent, so freshly compiled classes
// shadow same-named classes the parent already knows.
//
// Nothing is cached between calls. Compiling the same source twice yields
// two unrelated classes.
//
// The toolchain is looked up by name in the toolchain registry. Import the
// compiler package for its side effect to make the default one available:
//
//	import _ "github.com/chazu/classforge/compiler"
package jit
