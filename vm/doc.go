// Package vm implements the runtime that loaded classes execute on.
//
// This package contains:
//   - the value model (Go values for literals, Object for instances)
//   - Class and method dispatch through superclass chains
//   - the ClassLoader hierarchy and the bootstrap loader
//   - DefineClass, which materializes a classfile artifact
//   - the bytecode set and the interpreter
//   - builtin class primitives
package vm
