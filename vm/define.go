package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/classforge/classfile"
)

// NoSuperclass is the superclass name of a class that has none.
const NoSuperclass = "nil"

// ResolveFunc loads a class by binary name.
type ResolveFunc func(name string) (*Class, error)

// DefineClass materializes a class from a decoded artifact. The superclass
// and, later, every global the methods reference are resolved through
// loader, which becomes the class's defining loader.
func DefineClass(loader ClassLoader, cf *classfile.ClassFile, digest [32]byte) (*Class, error) {
	loader = orBoot(loader)
	return DefineClassWith(loader, loader.LoadClass, cf, digest)
}

// DefineClassWith is DefineClass with the superclass resolved through
// resolve instead of loader. Loaders that hold a lock while defining use it
// to resolve superclasses without re-entering LoadClass.
func DefineClassWith(loader ClassLoader, resolve ResolveFunc, cf *classfile.ClassFile, digest [32]byte) (*Class, error) {
	loader = orBoot(loader)
	name := cf.BinaryName()

	var super *Class
	switch cf.Superclass {
	case "":
		super = Boot().object
	case NoSuperclass:
	default:
		var err error
		super, err = ResolveWith(resolve, cf.Namespace, cf.Imports, cf.Superclass)
		if err != nil {
			return nil, fmt.Errorf("define %s: superclass %s: %w", name, cf.Superclass, err)
		}
		if super.sealed {
			return nil, &ClassFormatError{Name: name, Cause: fmt.Errorf("cannot subclass builtin %s", super.Name)}
		}
	}

	c := NewClass(cf.Namespace, cf.Name, super, append([]string(nil), cf.InstVars...))
	c.Imports = append([]string(nil), cf.Imports...)
	c.loader = loader
	c.digest = digest

	for i := range cf.Methods {
		m, err := decodeMethod(&cf.Methods[i])
		if err != nil {
			return nil, &ClassFormatError{Name: name, Cause: err}
		}
		c.AddMethod(m)
	}
	for i := range cf.ClassMethods {
		m, err := decodeMethod(&cf.ClassMethods[i])
		if err != nil {
			return nil, &ClassFormatError{Name: name, Cause: err}
		}
		c.AddClassMethod(m)
	}
	return c, nil
}

// DefineBytes decodes an artifact and defines it. The artifact must declare
// the binary name it is being loaded as.
func DefineBytes(loader ClassLoader, resolve ResolveFunc, name string, data []byte) (*Class, error) {
	cf, err := classfile.Unmarshal(data)
	if err != nil {
		return nil, &ClassFormatError{Name: name, Cause: err}
	}
	if got := cf.BinaryName(); got != name {
		return nil, &ClassFormatError{Name: name, Cause: fmt.Errorf("artifact declares %s", got)}
	}
	return DefineClassWith(loader, resolve, cf, classfile.Digest(data))
}

// Resolve looks name up through loader the way compiled code sees globals:
// namespace-qualified first, then each import, then the bare name. Errors
// other than ClassNotFoundError abort the search.
func Resolve(loader ClassLoader, namespace string, imports []string, name string) (*Class, error) {
	return ResolveWith(orBoot(loader).LoadClass, namespace, imports, name)
}

// ResolveWith is Resolve over an arbitrary lookup function.
func ResolveWith(resolve ResolveFunc, namespace string, imports []string, name string) (*Class, error) {
	candidates := make([]string, 0, len(imports)+2)
	if namespace != "" {
		candidates = append(candidates, classfile.BinaryName(namespace, name))
	}
	for _, imp := range imports {
		candidates = append(candidates, classfile.BinaryName(imp, name))
	}
	candidates = append(candidates, name)

	for _, cand := range candidates {
		c, err := resolve(cand)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}
	return nil, &ClassNotFoundError{Name: name}
}

func decodeMethod(cm *classfile.Method) (*Method, error) {
	if want := selectorArity(cm.Selector); want != cm.NumArgs {
		return nil, fmt.Errorf("method %s: declares %d args, selector takes %d", cm.Selector, cm.NumArgs, want)
	}
	if err := checkFrame(cm.NumArgs, cm.NumTemps, cm.Bytecode); err != nil {
		return nil, fmt.Errorf("method %s: %w", cm.Selector, err)
	}
	m := &Method{
		Selector: cm.Selector,
		NumArgs:  cm.NumArgs,
		NumTemps: cm.NumTemps,
		Bytecode: cm.Bytecode,
		Literals: decodeLiterals(cm.Literals),
		Source:   cm.Source,
	}
	for i := range cm.Blocks {
		b := &cm.Blocks[i]
		if err := checkFrame(b.NumArgs, b.NumTemps, b.Bytecode); err != nil {
			return nil, fmt.Errorf("method %s block %d: %w", cm.Selector, i, err)
		}
		m.Blocks = append(m.Blocks, &BlockMethod{
			NumArgs:  b.NumArgs,
			NumTemps: b.NumTemps,
			Bytecode: b.Bytecode,
			Literals: decodeLiterals(b.Literals),
		})
	}
	return m, nil
}

func checkFrame(numArgs, numTemps int, bc []byte) error {
	if numArgs < 0 || numTemps < 0 || numArgs+numTemps > 255 {
		return fmt.Errorf("bad frame size %d+%d", numArgs, numTemps)
	}
	return Verify(bc)
}

func decodeLiterals(lits []classfile.Literal) []Value {
	if len(lits) == 0 {
		return nil
	}
	out := make([]Value, len(lits))
	for i := range lits {
		out[i] = decodeLiteral(&lits[i])
	}
	return out
}

func decodeLiteral(l *classfile.Literal) Value {
	switch l.Kind {
	case classfile.LitTrue:
		return true
	case classfile.LitFalse:
		return false
	case classfile.LitInt:
		return l.Int
	case classfile.LitFloat:
		return l.Float
	case classfile.LitString:
		return l.Str
	case classfile.LitSymbol, classfile.LitSelector, classfile.LitGlobal:
		return Symbol(l.Str)
	case classfile.LitChar:
		return Character(rune(l.Int))
	case classfile.LitArray:
		return NewArray(decodeLiterals(l.Elems)...)
	}
	return nil
}
