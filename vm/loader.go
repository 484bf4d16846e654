package vm

import (
	"sync"
)

// ClassLoader resolves binary class names to loaded classes. Loaders form a
// chain through Parent; the chain ends at the bootstrap loader returned by
// Boot. A loader that cannot supply a name returns a *ClassNotFoundError.
type ClassLoader interface {
	LoadClass(name string) (*Class, error)
	Parent() ClassLoader
}

// BootLoader holds the builtin classes. It is built once per process and is
// immutable afterwards.
type BootLoader struct {
	classes map[string]*Class

	object          *Class
	undefinedObject *Class
	boolean         *Class
	number          *Class
	smallInteger    *Class
	float           *Class
	string          *Class
	symbol          *Class
	character       *Class
	array           *Class
	blockClosure    *Class
	class           *Class
}

var (
	bootOnce sync.Once
	boot     *BootLoader
)

// Boot returns the process-wide bootstrap loader.
func Boot() *BootLoader {
	bootOnce.Do(func() {
		boot = newBootLoader()
	})
	return boot
}

func newBootLoader() *BootLoader {
	b := &BootLoader{classes: make(map[string]*Class)}

	// Installers run inside bootOnce and must not call Boot.
	b.object = b.define("Object", nil)
	b.undefinedObject = b.define("UndefinedObject", b.object)
	b.boolean = b.define("Boolean", b.object)
	b.number = b.define("Number", b.object)
	b.smallInteger = b.define("SmallInteger", b.number)
	b.float = b.define("Float", b.number)
	b.string = b.define("String", b.object)
	b.symbol = b.define("Symbol", b.object)
	b.character = b.define("Character", b.object)
	b.array = b.define("Array", b.object)
	b.blockClosure = b.define("BlockClosure", b.object)
	b.class = b.define("Class", b.object)
	b.object.sealed = false

	installObjectPrimitives(b)
	installClassPrimitives(b)
	installBooleanPrimitives(b)
	installNumberPrimitives(b)
	installStringPrimitives(b)
	installArrayPrimitives(b)
	installBlockPrimitives(b)
	return b
}

func (b *BootLoader) define(name string, super *Class) *Class {
	c := NewClass("", name, super, nil)
	c.loader = b
	c.sealed = true
	b.classes[name] = c
	return c
}

// LoadClass returns the builtin class with the given bare name.
func (b *BootLoader) LoadClass(name string) (*Class, error) {
	if c, ok := b.classes[name]; ok {
		return c, nil
	}
	return nil, &ClassNotFoundError{Name: name}
}

// Parent returns nil; the bootstrap loader ends every chain.
func (b *BootLoader) Parent() ClassLoader {
	return nil
}

// Names returns the names of all builtin classes.
func (b *BootLoader) Names() []string {
	out := make([]string, 0, len(b.classes))
	for name := range b.classes {
		out = append(out, name)
	}
	return out
}

// IsBuiltin reports whether name is a builtin class name.
func (b *BootLoader) IsBuiltin(name string) bool {
	_, ok := b.classes[name]
	return ok
}

// Object returns the root class.
func (b *BootLoader) Object() *Class {
	return b.object
}

// orBoot returns l, or the bootstrap loader when l is nil.
func orBoot(l ClassLoader) ClassLoader {
	if l == nil {
		return Boot()
	}
	return l
}
