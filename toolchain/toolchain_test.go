package toolchain

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/vm"
)

// writeArtifact writes cf under dir the way StandardFileManager lays it out.
func writeArtifact(t *testing.T, dir string, cf *classfile.ClassFile) {
	t.Helper()
	data, err := classfile.Marshal(cf)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	fm := NewStandardFileManager(nil, dir)
	out, err := fm.OutputFor(ClassOutput, cf.BinaryName(), KindClass, nil)
	if err != nil {
		t.Fatalf("OutputFor: %v", err)
	}
	w, err := out.OpenWriter()
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func withSuper(ns, name, super string) *classfile.ClassFile {
	cf := classfile.New(ns, name)
	cf.Superclass = super
	return cf
}

// ---------------------------------------------------------------------------
// StandardFileManager
// ---------------------------------------------------------------------------

func TestStandardFileManagerLayout(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, classfile.New("acme.tools", "Greeter"))

	want := filepath.Join(dir, "acme", "tools", "Greeter.mclass")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("artifact not at %s: %v", want, err)
	}

	fm := NewStandardFileManager([]string{t.TempDir(), dir}, "")
	f, err := fm.Lookup(ClassPath, "acme.tools.Greeter", KindClass)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if f.Name() != "acme.tools.Greeter" || f.Kind() != KindClass {
		t.Errorf("Lookup = %s/%s", f.Name(), f.Kind())
	}
	if !strings.HasPrefix(f.URI(), "file://") {
		t.Errorf("URI = %q", f.URI())
	}
	data, err := ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	cf, err := classfile.Unmarshal(data)
	if err != nil || cf.Name != "Greeter" {
		t.Fatalf("Unmarshal = %v, %v", cf, err)
	}

	if _, err := fm.Lookup(ClassPath, "acme.tools.Missing", KindClass); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing Lookup err = %v, want ErrNotFound", err)
	}
}

func TestStandardFileManagerList(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeArtifact(t, first, classfile.New("acme", "B"))
	writeArtifact(t, second, classfile.New("acme", "A"))
	writeArtifact(t, second, classfile.New("acme", "B"))
	writeArtifact(t, second, classfile.New("acme.deeper", "C"))

	fm := NewStandardFileManager([]string{first, second}, "")
	files, err := fm.List(ClassPath, "acme", KindClass)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	if diff := cmp.Diff([]string{"acme.A", "acme.B"}, names); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(files[1].URI(), filepath.ToSlash(first)) {
		t.Errorf("acme.B should come from the first entry, got %s", files[1].URI())
	}
}

func TestStandardFileManagerRejectsWrites(t *testing.T) {
	fm := NewStandardFileManager(nil, "")
	if _, err := fm.OutputFor(ClassOutput, "X", KindClass, nil); !errors.Is(err, ErrUnsupportedLocation) {
		t.Errorf("no output dir: err = %v", err)
	}
	fm.OutputDir = t.TempDir()
	if _, err := fm.OutputFor(ClassPath, "X", KindClass, nil); !errors.Is(err, ErrUnsupportedLocation) {
		t.Errorf("class path write: err = %v", err)
	}
}

func TestParseClassPath(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := ParseClassPath("a" + sep + sep + " b " + sep)
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("ParseClassPath mismatch (-want +got):\n%s", diff)
	}
	if got := JoinClassPath([]string{"a", "b"}); got != "a"+sep+"b" {
		t.Errorf("JoinClassPath = %q", got)
	}
	if got := ParseClassPath(""); got != nil {
		t.Errorf("ParseClassPath(\"\") = %v, want nil", got)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.Report(Diagnostic{Severity: SeverityWarning, Source: "a.B", Pos: Position{1, 2}, Message: "w"})
	c.Report(Diagnostic{Severity: SeverityError, Source: "a.B", Pos: Position{3, 4}, Message: "first"})
	c.Report(Diagnostic{Severity: SeverityError, Source: "a.B", Message: "second"})

	if !c.HasErrors() {
		t.Fatal("HasErrors = false")
	}
	if c.Len() != 3 || len(c.Errors()) != 2 || len(c.Warnings()) != 1 {
		t.Errorf("Len/Errors/Warnings = %d/%d/%d", c.Len(), len(c.Errors()), len(c.Warnings()))
	}
	want := strings.Join([]string{
		"a.B:1:2: warning: w",
		"a.B:3:4: error: first",
		"a.B: error: second",
	}, "\n")
	if got := c.String(); got != want {
		t.Errorf("String =\n%s\nwant\n%s", got, want)
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

type nopToolchain struct{ name string }

func (n nopToolchain) Name() string {
	return n.name
}

func (n nopToolchain) Run(*Task) error {
	return nil
}

func TestRegistry(t *testing.T) {
	Register(nopToolchain{name: "nop-test"})

	tc, err := Lookup("nop-test")
	if err != nil || tc.Name() != "nop-test" {
		t.Fatalf("Lookup = %v, %v", tc, err)
	}
	if _, err := Lookup("no-such-toolchain"); err == nil {
		t.Error("Lookup of unknown name should fail")
	}

	found := false
	for _, n := range Names() {
		found = found || n == "nop-test"
	}
	if !found {
		t.Errorf("Names() = %v, missing nop-test", Names())
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register should panic")
		}
	}()
	Register(nopToolchain{name: "nop-test"})
}

func TestTaskTranscript(t *testing.T) {
	var sb strings.Builder
	task := &Task{Transcript: &sb}
	task.Printf("compiled %d units", 2)
	task.Report(Diagnostic{Message: "dropped"}) // no listener
	if sb.String() != "compiled 2 units" {
		t.Errorf("transcript = %q", sb.String())
	}
}

// ---------------------------------------------------------------------------
// PathLoader
// ---------------------------------------------------------------------------

func TestPathLoader(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, classfile.New("acme", "Base"))
	writeArtifact(t, dir, withSuper("acme", "Derived", "Base"))

	l := NewPathLoader([]string{dir}, nil)
	if l.Parent() != vm.Boot() {
		t.Error("nil parent should default to the boot loader")
	}

	derived, err := l.LoadClass("acme.Derived")
	if err != nil {
		t.Fatalf("LoadClass: %v", err)
	}
	if derived.Superclass == nil || derived.Superclass.FullName() != "acme.Base" {
		t.Fatalf("superclass = %v, want acme.Base", derived.Superclass)
	}
	if derived.Loader() != vm.ClassLoader(l) {
		t.Error("defining loader should be the path loader")
	}

	again, err := l.LoadClass("acme.Derived")
	if err != nil || again != derived {
		t.Errorf("second LoadClass returned a different class")
	}
	base, _ := l.LoadClass("acme.Base")
	if base != derived.Superclass {
		t.Error("Base should be defined once and shared")
	}

	object, err := l.LoadClass("Object")
	if err != nil || object != vm.Boot().Object() {
		t.Errorf("builtins should come from the parent: %v, %v", object, err)
	}
}

func TestPathLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, withSuper("", "A", "B"))
	writeArtifact(t, dir, withSuper("", "B", "A"))
	writeArtifact(t, dir, withSuper("", "Orphan", "Gone"))

	// An artifact stored under a name it does not declare.
	cf := classfile.New("", "Real")
	data, err := classfile.Marshal(cf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Fake.mclass"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Junk.mclass"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewPathLoader([]string{dir}, nil)
	var formatErr *vm.ClassFormatError

	tests := []struct {
		name  string
		check func(error) bool
	}{
		{"Missing", func(err error) bool { return errors.Is(err, vm.ErrClassNotFound) }},
		{"A", func(err error) bool { return errors.Is(err, vm.ErrClassCircularity) }},
		{"Orphan", func(err error) bool { return errors.Is(err, vm.ErrClassNotFound) }},
		{"Fake", func(err error) bool { return errors.As(err, &formatErr) }},
		{"Junk", func(err error) bool { return errors.As(err, &formatErr) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.LoadClass(tt.name)
			if err == nil || !tt.check(err) {
				t.Fatalf("LoadClass(%s) err = %v", tt.name, err)
			}
		})
	}
}
