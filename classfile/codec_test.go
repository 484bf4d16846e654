package classfile

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
)

func sampleClass() *ClassFile {
	cf := New("acme.tools", "Greeter")
	cf.Superclass = "Object"
	cf.InstVars = []string{"name"}
	cf.Imports = []string{"acme.util"}
	cf.Methods = []Method{{
		Selector: "greet",
		Bytecode: []byte{0x16, 0x00, 0x00, 0x70},
		Literals: []Literal{{Kind: LitString, Str: "hello"}},
		Source:   "greet [^'hello']",
	}}
	cf.ClassMethods = []Method{{
		Selector: "named:",
		NumArgs:  1,
		Bytecode: []byte{0x13, 0x70},
		Literals: []Literal{{Kind: LitArray, Elems: []Literal{{Kind: LitInt, Int: 3}, {Kind: LitChar, Int: 'x'}}}},
	}}
	return cf
}

func TestMarshalRoundTrip(t *testing.T) {
	cf := sampleClass()
	data, err := Marshal(cf)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(cf, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	a, err := Marshal(sampleClass())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(sampleClass())
	if err != nil {
		t.Fatal(err)
	}
	if Digest(a) != Digest(b) {
		t.Error("identical classes produced different digests")
	}
}

func TestUnmarshalRejectsForeignData(t *testing.T) {
	if _, err := Unmarshal([]byte("not cbor at all")); err == nil {
		t.Error("expected error for garbage input")
	}

	foreign, err := cbor.Marshal(map[int]any{1: uint32(0xCAFEBABE), 2: uint16(1), 3: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(foreign); !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}

	future := sampleClass()
	future.Version = Version + 1
	data, err := cborEncMode.Marshal(future)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestBinaryNames(t *testing.T) {
	tests := []struct {
		ns, name, binary, path string
	}{
		{"", "Greeter", "Greeter", "Greeter.mclass"},
		{"acme", "Greeter", "acme.Greeter", "acme/Greeter.mclass"},
		{"acme.tools", "Greeter", "acme.tools.Greeter", "acme/tools/Greeter.mclass"},
	}
	for _, tc := range tests {
		if got := BinaryName(tc.ns, tc.name); got != tc.binary {
			t.Errorf("BinaryName(%q, %q) = %q, want %q", tc.ns, tc.name, got, tc.binary)
		}
		ns, name := SplitBinaryName(tc.binary)
		if ns != tc.ns || name != tc.name {
			t.Errorf("SplitBinaryName(%q) = (%q, %q)", tc.binary, ns, name)
		}
		if got := RelativePath(tc.binary, Extension); got != tc.path {
			t.Errorf("RelativePath(%q) = %q, want %q", tc.binary, got, tc.path)
		}
	}
}
