package toolchain

import (
	"fmt"
	"io"

	"github.com/chazu/classforge/classfile"
)

// Kind classifies a file object.
type Kind int

const (
	KindOther Kind = iota
	KindSource
	KindClass
)

// String implements the Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindClass:
		return "class"
	}
	return "other"
}

// Extension returns the file name extension for the kind.
func (k Kind) Extension() string {
	switch k {
	case KindSource:
		return classfile.SourceExtension
	case KindClass:
		return classfile.Extension
	}
	return ""
}

// KindOf infers a kind from a file name extension.
func KindOf(ext string) Kind {
	switch ext {
	case classfile.SourceExtension:
		return KindSource
	case classfile.Extension:
		return KindClass
	}
	return KindOther
}

// Location names a place a FileManager reads from or writes to.
type Location int

const (
	// ClassOutput is where compiled artifacts are written.
	ClassOutput Location = iota
	// ClassPath is searched for artifacts referenced by the sources.
	ClassPath
)

// String implements the Stringer interface.
func (l Location) String() string {
	switch l {
	case ClassOutput:
		return "CLASS_OUTPUT"
	case ClassPath:
		return "CLASS_PATH"
	}
	return fmt.Sprintf("Location(%d)", int(l))
}

// FileObject is anything a toolchain reads or writes.
type FileObject interface {
	// Name is the logical name: a binary name for classes, the unit name
	// for sources.
	Name() string
	Kind() Kind
	URI() string
}

// SourceFile is a compilation unit.
type SourceFile interface {
	FileObject
	CharContent() (string, error)
}

// OutputFile receives the bytes of one artifact.
type OutputFile interface {
	FileObject
	OpenWriter() (io.WriteCloser, error)
}

// InputFile is a readable artifact found on a search location.
type InputFile interface {
	FileObject
	Open() (io.ReadCloser, error)
}

// ReadAll reads the full content of an input file.
func ReadAll(f InputFile) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
