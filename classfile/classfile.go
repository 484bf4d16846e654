// Package classfile defines the binary artifact produced for one compiled
// Maggie class. A class file is self-contained: selectors and global names
// are stored as literals, so the artifact can be loaded by any loader without
// a shared symbol table.
package classfile

import "strings"

// Magic identifies a classforge artifact.
const Magic uint32 = 0x4D41474B // "MAGK"

// Version is the current artifact format version.
const Version uint16 = 1

// Extension is the file extension used when artifacts are written to disk.
const Extension = ".mclass"

// SourceExtension is the file extension of Maggie source units.
const SourceExtension = ".mag"

// LiteralKind identifies the kind of value held by a Literal.
type LiteralKind uint8

const (
	LitNil LiteralKind = iota
	LitTrue
	LitFalse
	LitInt
	LitFloat
	LitString
	LitSymbol
	LitChar
	LitArray
	LitSelector // message selector referenced by SEND operands
	LitGlobal   // global/class name referenced by PUSH_GLOBAL
)

var literalKindNames = [...]string{
	LitNil:      "nil",
	LitTrue:     "true",
	LitFalse:    "false",
	LitInt:      "int",
	LitFloat:    "float",
	LitString:   "string",
	LitSymbol:   "symbol",
	LitChar:     "char",
	LitArray:    "array",
	LitSelector: "selector",
	LitGlobal:   "global",
}

func (k LiteralKind) String() string {
	if int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return "unknown"
}

// Literal is one entry of a method's literal frame.
type Literal struct {
	Kind  LiteralKind `cbor:"1,keyasint"`
	Int   int64       `cbor:"2,keyasint,omitempty"`
	Float float64     `cbor:"3,keyasint,omitempty"`
	Str   string      `cbor:"4,keyasint,omitempty"`
	Elems []Literal   `cbor:"5,keyasint,omitempty"`
}

// Block is the compiled body of a block closure. Blocks are owned by the
// method that lexically contains them, nested blocks included.
type Block struct {
	NumArgs  int       `cbor:"1,keyasint"`
	NumTemps int       `cbor:"2,keyasint"`
	Bytecode []byte    `cbor:"3,keyasint"`
	Literals []Literal `cbor:"4,keyasint,omitempty"`
}

// Method is a compiled method.
type Method struct {
	Selector string    `cbor:"1,keyasint"`
	NumArgs  int       `cbor:"2,keyasint"`
	NumTemps int       `cbor:"3,keyasint"`
	Bytecode []byte    `cbor:"4,keyasint"`
	Literals []Literal `cbor:"5,keyasint,omitempty"`
	Blocks   []Block   `cbor:"6,keyasint,omitempty"`
	Source   string    `cbor:"7,keyasint,omitempty"`
}

// ClassFile is the artifact for a single class.
type ClassFile struct {
	Magic        uint32   `cbor:"1,keyasint"`
	Version      uint16   `cbor:"2,keyasint"`
	Name         string   `cbor:"3,keyasint"`
	Namespace    string   `cbor:"4,keyasint,omitempty"`
	Superclass   string   `cbor:"5,keyasint,omitempty"`
	InstVars     []string `cbor:"6,keyasint,omitempty"`
	Imports      []string `cbor:"7,keyasint,omitempty"`
	Methods      []Method `cbor:"8,keyasint,omitempty"`
	ClassMethods []Method `cbor:"9,keyasint,omitempty"`
	SourceName   string   `cbor:"10,keyasint,omitempty"`
}

// New returns an empty class file stamped with the current magic and version.
func New(namespace, name string) *ClassFile {
	return &ClassFile{
		Magic:     Magic,
		Version:   Version,
		Name:      name,
		Namespace: namespace,
	}
}

// BinaryName returns the fully qualified, loader-visible name of the class.
func (cf *ClassFile) BinaryName() string {
	return BinaryName(cf.Namespace, cf.Name)
}

// BinaryName joins a dotted namespace and a simple class name.
func BinaryName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// SplitBinaryName splits "a.b.Name" into ("a.b", "Name").
func SplitBinaryName(binaryName string) (namespace, name string) {
	idx := strings.LastIndexByte(binaryName, '.')
	if idx < 0 {
		return "", binaryName
	}
	return binaryName[:idx], binaryName[idx+1:]
}

// RelativePath maps a binary name onto a slash-separated artifact path,
// e.g. "acme.tools.Greeter" -> "acme/tools/Greeter.mclass".
func RelativePath(binaryName, ext string) string {
	return strings.ReplaceAll(binaryName, ".", "/") + ext
}
