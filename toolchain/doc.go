// Package toolchain defines the boundary between classforge and a pluggable
// compiler: file objects, file managers, diagnostics and compilation tasks.
//
// A Toolchain never touches the file system directly. It reads source units
// through SourceFile, resolves references through a FileManager's ClassPath
// location and writes every artifact it produces to the OutputFile the
// FileManager hands out for the ClassOutput location. Swapping the
// FileManager is how callers redirect output into memory.
package toolchain
