package jit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	_ "github.com/chazu/classforge/compiler"
	"github.com/chazu/classforge/config"
	"github.com/chazu/classforge/toolchain"
	"github.com/chazu/classforge/vm"
)

const actionSource = `MyAction subclass: Object
  instanceVars: done

  method: initialize [ done := false ]
  method: doAction [ done := true. ^'YAY' ]
  method: done [ ^done ]
`

func sendOK(t *testing.T, recv vm.Value, selector string, args ...vm.Value) vm.Value {
	t.Helper()
	v, err := vm.NewInterpreter().Send(recv, selector, args...)
	if err != nil {
		t.Fatalf("%s: %v", selector, err)
	}
	return v
}

func TestCompiledInstance(t *testing.T) {
	c := &Compiler{}
	first, err := c.CompiledInstance(actionSource, "acme.MyAction")
	if err != nil {
		t.Fatalf("CompiledInstance: %v", err)
	}
	obj, ok := first.(*vm.Object)
	if !ok {
		t.Fatalf("instance = %T", first)
	}
	if got := obj.Class().FullName(); got != "acme.MyAction" {
		t.Errorf("class = %s", got)
	}
	if got := sendOK(t, obj, "doAction"); got != "YAY" {
		t.Errorf("doAction = %v, want YAY", got)
	}

	second, err := c.CompiledInstance(actionSource, "acme.MyAction")
	if err != nil {
		t.Fatalf("CompiledInstance: %v", err)
	}
	if second == first {
		t.Error("two calls answered the same instance")
	}
	if second.(*vm.Object).Class() == obj.Class() {
		t.Error("two calls answered the same class")
	}
	if got := sendOK(t, second, "done"); got != false {
		t.Errorf("fresh instance done = %v, want false", got)
	}
}

func TestCompiledLiteralArray(t *testing.T) {
	src := "Lits subclass: Object\n  method: syms [ ^#(foo bar: + 3 $c 'str' (nested)) ]\n"
	v, err := GetCompiledInstance(src, "acme.Lits")
	if err != nil {
		t.Fatalf("GetCompiledInstance: %v", err)
	}
	arr, ok := sendOK(t, v, "syms").(*vm.Array)
	if !ok {
		t.Fatal("syms did not answer an array")
	}
	want := []vm.Value{
		vm.Symbol("foo"),
		vm.Symbol("bar:"),
		vm.Symbol("+"),
		int64(3),
		vm.Character('c'),
		"str",
		vm.NewArray(vm.Symbol("nested")),
	}
	if diff := cmp.Diff(want, arr.Elems); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
	if got := vm.PrintString(arr); got != "#(#foo #bar: #+ 3 $c 'str' #(#nested))" {
		t.Errorf("printString = %s", got)
	}
}

func TestGetCompiledClass(t *testing.T) {
	cls, err := GetCompiledClass(actionSource, "acme.MyAction")
	if err != nil {
		t.Fatalf("GetCompiledClass: %v", err)
	}
	if cls.Name != "MyAction" || cls.Namespace != "acme" {
		t.Errorf("class = %s", cls.FullName())
	}
	if !cls.HasMethod("doAction") {
		t.Error("doAction missing")
	}
}

func TestCompilationErrorListsEveryDiagnostic(t *testing.T) {
	src := "Broken subclass: Object\n  method: a [ ^missing ]\n  method: b [ ^other ]\n"
	_, err := GetCompiledInstance(src, "acme.Broken")
	if !errors.Is(err, ErrInvalidCompilation) {
		t.Fatalf("err = %v, want ErrInvalidCompilation", err)
	}
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %T", err)
	}
	if ce.Empty || ce.Cause != nil || ce.Name != "acme.Broken" {
		t.Errorf("error = %+v", ce)
	}
	if len(ce.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %v, want 2", ce.Diagnostics)
	}
	for i, want := range []string{`undefined variable "missing"`, `undefined variable "other"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message lacks %q:\n%s", want, err)
		}
		if ce.Diagnostics[i].Pos.Line != i+2 {
			t.Errorf("diagnostic %d on line %d, want %d", i, ce.Diagnostics[i].Pos.Line, i+2)
		}
	}
	if !strings.HasPrefix(err.Error(), "compile acme.Broken: 2 error(s)\n") {
		t.Errorf("message = %q", err.Error())
	}
	if errors.Is(err, vm.ErrClassNotFound) {
		t.Error("compilation failure also matches ErrClassNotFound")
	}
}

func TestSyntaxErrorIsCompilationError(t *testing.T) {
	_, err := GetCompiledClass("Broken subclass: Object\n  method: b [ ^1 + ]\n", "acme.Broken")
	if !errors.Is(err, ErrInvalidCompilation) {
		t.Errorf("err = %v, want ErrInvalidCompilation", err)
	}
}

func TestWrongNameIsClassNotFound(t *testing.T) {
	_, err := GetCompiledClass(actionSource, "acme.Other")
	if !errors.Is(err, vm.ErrClassNotFound) {
		t.Fatalf("err = %v, want ErrClassNotFound", err)
	}
	if errors.Is(err, ErrInvalidCompilation) {
		t.Error("name mismatch reported as a compilation failure")
	}

	_, err = GetCompiledClassData(actionSource, "acme.Other")
	if !errors.Is(err, vm.ErrClassNotFound) {
		t.Errorf("class data err = %v, want ErrClassNotFound", err)
	}
}

func TestEmptyOutput(t *testing.T) {
	tests := []struct {
		name   string
		source string
		class  string
	}{
		{"empty source", "", "acme.Nothing"},
		{"comments only", `"nothing here"`, "acme.Nothing"},
		{"wrong name too", "", "acme.Other"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GetCompiledClass(tc.source, tc.class)
			var ce *CompilationError
			if !errors.As(err, &ce) || !ce.Empty {
				t.Fatalf("err = %v, want an empty-output CompilationError", err)
			}
			if errors.Is(err, vm.ErrClassNotFound) {
				t.Error("empty output also matches ErrClassNotFound")
			}
			if !strings.Contains(err.Error(), "no output produced") {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestInstantiationFailure(t *testing.T) {
	src := "Picky subclass: Object\n  method: initialize [ self error: 'no instances' ]\n"
	_, err := GetCompiledInstance(src, "acme.Picky")
	var ie *InstantiationError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InstantiationError", err)
	}
	if ie.Class.FullName() != "acme.Picky" {
		t.Errorf("class = %s", ie.Class.FullName())
	}
	if !errors.Is(err, vm.ErrUserError) {
		t.Errorf("err = %v, want it to wrap ErrUserError", err)
	}
	if errors.Is(err, ErrInvalidCompilation) {
		t.Error("instantiation failure reported as a compilation failure")
	}
}

func TestInstantiationDepthLimit(t *testing.T) {
	c := &Compiler{MaxDepth: 50}
	_, err := c.CompiledInstance("Deep subclass: Object\n  method: initialize [ self initialize ]\n", "acme.Deep")
	if !errors.Is(err, vm.ErrStackOverflow) {
		t.Errorf("err = %v, want ErrStackOverflow", err)
	}
}

func TestClassDataFeedsLaterCompilation(t *testing.T) {
	data, err := GetCompiledClassData("T subclass: Object\n  method: tag [ ^'from T' ]\n", "acme.T")
	if err != nil {
		t.Fatalf("GetCompiledClassData: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("no bytes")
	}

	v, err := GetCompiledInstance("V subclass: Object\n  method: tag [ ^T new tag ]\n", "acme.V",
		WithExtraArtifacts(map[string][]byte{"acme.T": data}))
	if err != nil {
		t.Fatalf("GetCompiledInstance: %v", err)
	}
	if got := sendOK(t, v, "tag"); got != "from T" {
		t.Errorf("tag = %v", got)
	}

	again, err := GetCompiledClassData("T subclass: Object\n  method: tag [ ^'from T' ]\n", "acme.T")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data, again); diff != "" {
		t.Errorf("artifact bytes are not deterministic (-first +second):\n%s", diff)
	}
}

func TestConcurrentCompilationsAreIsolated(t *testing.T) {
	const n = 8
	classes := make([]*vm.Class, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := fmt.Sprintf("Same subclass: Object\n  method: id [ ^%d ]\n", i)
			cls, err := GetCompiledClass(src, "acme.Same")
			if err != nil {
				t.Errorf("compile %d: %v", i, err)
				return
			}
			classes[i] = cls
		}()
	}
	wg.Wait()

	seen := make(map[*vm.Class]bool)
	for i, cls := range classes {
		if cls == nil {
			continue
		}
		if seen[cls] {
			t.Errorf("class %d shared with another compilation", i)
		}
		seen[cls] = true
		if got := sendOK(t, cls.BasicNew(), "id"); got != int64(i) {
			t.Errorf("class %d id = %v", i, got)
		}
	}
}

// writeArtifact stores data on disk the way a class path directory lays
// artifacts out.
func writeArtifact(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	out, err := toolchain.NewStandardFileManager(nil, dir).OutputFor(toolchain.ClassOutput, name, toolchain.KindClass, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := out.OpenWriter()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

const (
	diskGreeter   = "Greeter subclass: Object\n  method: tag [ ^'disk' ]\n"
	memoryGreeter = "Greeter subclass: Object\n  method: tag [ ^'memory' ]\n"
	greeterUser   = "User subclass: Object\n  method: tag [ ^Greeter new tag ]\n"
)

func TestCompiledClassShadowsParent(t *testing.T) {
	dir := t.TempDir()
	data, err := GetCompiledClassData(diskGreeter, "acme.Greeter")
	if err != nil {
		t.Fatal(err)
	}
	writeArtifact(t, dir, "acme.Greeter", data)

	t.Run("explicit parent", func(t *testing.T) {
		parent := toolchain.NewPathLoader([]string{dir}, nil)
		cls, err := GetCompiledClassIn(memoryGreeter, "acme.Greeter", parent, "")
		if err != nil {
			t.Fatalf("GetCompiledClassIn: %v", err)
		}
		if got := sendOK(t, cls.BasicNew(), "tag"); got != "memory" {
			t.Errorf("tag = %v, want memory", got)
		}
		onDisk, err := parent.LoadClass("acme.Greeter")
		if err != nil {
			t.Fatal(err)
		}
		if got := sendOK(t, onDisk.BasicNew(), "tag"); got != "disk" {
			t.Errorf("parent tag = %v, want disk", got)
		}
	})

	t.Run("class path", func(t *testing.T) {
		cls, err := GetCompiledClassIn(memoryGreeter, "acme.Greeter", nil, dir)
		if err != nil {
			t.Fatalf("GetCompiledClassIn: %v", err)
		}
		if got := sendOK(t, cls.BasicNew(), "tag"); got != "memory" {
			t.Errorf("tag = %v, want memory", got)
		}
	})

	t.Run("reference resolved from class path", func(t *testing.T) {
		cls, err := GetCompiledClassIn(greeterUser, "acme.User", nil, dir)
		if err != nil {
			t.Fatalf("GetCompiledClassIn: %v", err)
		}
		if got := sendOK(t, cls.BasicNew(), "tag"); got != "disk" {
			t.Errorf("tag = %v, want disk", got)
		}
	})
}

func TestFromConfig(t *testing.T) {
	t.Setenv(config.PathEnv, "")
	dir := t.TempDir()
	content := "[compiler]\nclasspath = [\"lib\"]\n\n[runtime]\nmax-depth = 40\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	c, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if c.Toolchain == nil || c.Toolchain.Name() != config.DefaultToolchain {
		t.Errorf("toolchain = %v", c.Toolchain)
	}
	if c.MaxDepth != 40 {
		t.Errorf("MaxDepth = %d", c.MaxDepth)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "lib")}, c.ClassPath); diff != "" {
		t.Errorf("class path mismatch (-want +got):\n%s", diff)
	}
	if _, err := c.CompiledInstance(actionSource, "acme.MyAction"); err != nil {
		t.Errorf("CompiledInstance: %v", err)
	}

	cfg.Compiler.Toolchain = "nope"
	if _, err := FromConfig(cfg); err == nil {
		t.Error("unknown toolchain accepted")
	}
}

// fakeToolchain runs fn in place of a real compiler.
type fakeToolchain struct {
	fn func(task *toolchain.Task) error
}

func (f *fakeToolchain) Name() string { return "fake" }

func (f *fakeToolchain) Run(task *toolchain.Task) error { return f.fn(task) }

func TestToolchainMisbehaviour(t *testing.T) {
	broken := errors.New("toolchain crashed")
	tests := []struct {
		name  string
		fn    func(task *toolchain.Task) error
		check func(t *testing.T, ce *CompilationError)
	}{
		{
			name: "toolchain failure",
			fn:   func(*toolchain.Task) error { return broken },
			check: func(t *testing.T, ce *CompilationError) {
				if !errors.Is(ce, broken) {
					t.Errorf("cause = %v", ce.Cause)
				}
			},
		},
		{
			name: "success without output",
			fn:   func(*toolchain.Task) error { return nil },
			check: func(t *testing.T, ce *CompilationError) {
				if !ce.Empty {
					t.Error("Empty not set")
				}
			},
		},
		{
			name: "success with errors",
			fn: func(task *toolchain.Task) error {
				task.Report(toolchain.Diagnostic{Severity: toolchain.SeverityError, Source: "acme.X", Message: "bad"})
				return nil
			},
			check: func(t *testing.T, ce *CompilationError) {
				if len(ce.Diagnostics) != 1 || ce.Empty {
					t.Errorf("error = %+v", ce)
				}
			},
		},
		{
			name: "output left open",
			fn: func(task *toolchain.Task) error {
				out, err := task.FileManager.OutputFor(toolchain.ClassOutput, "acme.X", toolchain.KindClass, nil)
				if err != nil {
					return err
				}
				_, err = out.OpenWriter()
				return err
			},
			check: func(t *testing.T, ce *CompilationError) {
				if ce.Cause == nil || !strings.Contains(ce.Cause.Error(), "acme.X") {
					t.Errorf("cause = %v", ce.Cause)
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Compiler{Toolchain: &fakeToolchain{fn: tc.fn}}
			_, err := c.CompiledClass("ignored", "acme.X")
			var ce *CompilationError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want CompilationError", err)
			}
			tc.check(t, ce)
		})
	}
}

func TestTranscriptIsKept(t *testing.T) {
	c := &Compiler{Toolchain: &fakeToolchain{fn: func(task *toolchain.Task) error {
		task.Printf("nothing to do\n")
		return nil
	}}}
	_, err := c.CompiledClass("", "acme.X")
	var ce *CompilationError
	if !errors.As(err, &ce) || ce.Transcript != "nothing to do\n" {
		t.Errorf("err = %v", err)
	}
}
