package compiler

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/toolchain"
	"github.com/chazu/classforge/vm"
)

// ToolchainName is the name the Maggie toolchain is registered under.
const ToolchainName = "maggie"

var log = commonlog.GetLogger("classforge.compiler")

func init() {
	toolchain.Register(&Toolchain{})
}

// Toolchain compiles Maggie source units to class files. Each class a unit
// declares becomes one KindClass output named by its binary name.
type Toolchain struct{}

// Name implements toolchain.Toolchain.
func (*Toolchain) Name() string { return ToolchainName }

// Run implements toolchain.Toolchain. Every unit is parsed and analyzed
// even after an earlier unit failed, so the task sees all diagnostics.
// Units with errors produce no output.
func (tc *Toolchain) Run(task *toolchain.Task) error {
	failed := false
	for _, unit := range task.Units {
		ok, err := tc.compileUnit(task, unit)
		if err != nil {
			return err
		}
		if !ok {
			failed = true
		}
	}
	if failed {
		return toolchain.ErrCompilationFailed
	}
	return nil
}

// unitResult carries one unit through the pipeline.
type unitResult struct {
	task    *toolchain.Task
	unit    toolchain.SourceFile
	errored bool
}

func (u *unitResult) report(p Problem) {
	if p.Severity == toolchain.SeverityError {
		u.errored = true
	}
	u.task.Report(toolchain.Diagnostic{
		Severity: p.Severity,
		Source:   u.unit.Name(),
		Pos:      toolchain.Position{Line: p.Pos.Line, Column: p.Pos.Column},
		Message:  p.Msg,
	})
}

// compileUnit compiles one unit. ok is false when the unit had errors; err
// is non-nil only when writing an artifact failed.
func (tc *Toolchain) compileUnit(task *toolchain.Task, unit toolchain.SourceFile) (ok bool, err error) {
	u := &unitResult{task: task, unit: unit}

	content, err := unit.CharContent()
	if err != nil {
		u.report(Problem{Severity: toolchain.SeverityError, Msg: fmt.Sprintf("cannot read source: %v", err)})
		return false, nil
	}

	parser := NewParser(content)
	sf := parser.ParseSourceFile()
	for _, perr := range parser.Errors() {
		u.report(Problem{Severity: toolchain.SeverityError, Pos: perr.Pos, Msg: perr.Msg})
	}

	namespace, _ := classfile.SplitBinaryName(unit.Name())
	if sf.Namespace != nil {
		namespace = globalName(sf.Namespace.Name)
	}
	imports := make([]string, 0, len(sf.Imports))
	for _, imp := range sf.Imports {
		imports = append(imports, globalName(imp.Path))
	}

	analyzer := NewSemanticAnalyzer(tc.resolver(task.FileManager, namespace, imports, sf))
	analyzer.AnalyzeSourceFile(sf, namespace, unit.Name())
	for _, p := range analyzer.Problems() {
		u.report(p)
	}
	if u.errored {
		log.Debugf("unit %s failed", unit.Name())
		return false, nil
	}

	gen := NewCompiler(namespace, imports)
	var classes []*classfile.ClassFile
	for _, cls := range sf.Classes {
		classes = append(classes, gen.CompileClass(cls, unit.Name()))
	}
	for _, p := range gen.Errors() {
		u.report(p)
	}
	if u.errored {
		return false, nil
	}

	for _, cf := range classes {
		if err := writeClass(task.FileManager, cf, unit); err != nil {
			return false, err
		}
	}
	task.Printf("%s: %d class(es)\n", unit.Name(), len(classes))
	log.Debugf("unit %s compiled to %d class(es)", unit.Name(), len(classes))
	return true, nil
}

// resolver reports whether a global will resolve for classes of this unit,
// trying the same candidates the runtime does: namespace-qualified, each
// import, then the bare name.
func (tc *Toolchain) resolver(fm toolchain.FileManager, namespace string, imports []string, sf *SourceFile) GlobalResolver {
	local := make(map[string]bool, len(sf.Classes))
	for _, cls := range sf.Classes {
		local[classfile.BinaryName(namespace, cls.Name)] = true
	}
	exists := func(name string) bool {
		if local[name] || vm.Boot().IsBuiltin(name) {
			return true
		}
		if fm == nil {
			return false
		}
		_, err := fm.Lookup(toolchain.ClassPath, name, toolchain.KindClass)
		return err == nil
	}
	return func(name string) bool {
		if namespace != "" && exists(classfile.BinaryName(namespace, name)) {
			return true
		}
		for _, imp := range imports {
			if exists(classfile.BinaryName(imp, name)) {
				return true
			}
		}
		return exists(name)
	}
}

func writeClass(fm toolchain.FileManager, cf *classfile.ClassFile, sibling toolchain.FileObject) (err error) {
	if fm == nil {
		return errors.New("no file manager")
	}
	data, err := classfile.Marshal(cf)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cf.BinaryName(), err)
	}
	out, err := fm.OutputFor(toolchain.ClassOutput, cf.BinaryName(), toolchain.KindClass, sibling)
	if err != nil {
		return fmt.Errorf("output for %s: %w", cf.BinaryName(), err)
	}
	w, err := out.OpenWriter()
	if err != nil {
		return fmt.Errorf("open %s: %w", out.URI(), err)
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", out.URI(), cerr)
		}
	}()
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", out.URI(), err)
	}
	return nil
}
