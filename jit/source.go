package jit

import (
	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/toolchain"
)

// SourceUnit is a compilation unit held in memory. Its name is the binary
// name of the class the unit is expected to declare.
type SourceUnit struct {
	name    string
	content string
}

// NewSourceUnit creates a source unit named name with the given text.
func NewSourceUnit(name, content string) *SourceUnit {
	return &SourceUnit{name: name, content: content}
}

// Name implements toolchain.FileObject.
func (u *SourceUnit) Name() string { return u.name }

// Kind implements toolchain.FileObject. It is always toolchain.KindSource.
func (u *SourceUnit) Kind() toolchain.Kind { return toolchain.KindSource }

// URI implements toolchain.FileObject, string:///acme/tools/Greeter.mag for
// acme.tools.Greeter.
func (u *SourceUnit) URI() string {
	return "string:///" + classfile.RelativePath(u.name, classfile.SourceExtension)
}

// CharContent implements toolchain.SourceFile.
func (u *SourceUnit) CharContent() (string, error) {
	return u.content, nil
}

var _ toolchain.SourceFile = (*SourceUnit)(nil)
