package vm

// ---------------------------------------------------------------------------
// Object Primitives
// ---------------------------------------------------------------------------

func installObjectPrimitives(b *BootLoader) {
	c := b.object

	c.addMethod1("==", func(_ *Interpreter, recv Value, arg Value) Value {
		return recv == arg
	})
	c.addMethod1("~~", func(_ *Interpreter, recv Value, arg Value) Value {
		return recv != arg
	})

	// = defaults to identity; value classes override it.
	c.addMethod1("=", func(_ *Interpreter, recv Value, arg Value) Value {
		return recv == arg
	})
	c.addMethod1("~=", func(in *Interpreter, recv Value, arg Value) Value {
		return !in.equal(recv, arg)
	})

	c.addMethod0("class", func(_ *Interpreter, recv Value) Value {
		return ClassOf(recv)
	})
	c.addMethod0("yourself", func(_ *Interpreter, recv Value) Value {
		return recv
	})
	c.addMethod0("initialize", func(_ *Interpreter, recv Value) Value {
		return recv
	})
	c.addMethod0("isNil", func(_ *Interpreter, recv Value) Value {
		return false
	})
	c.addMethod0("notNil", func(_ *Interpreter, recv Value) Value {
		return true
	})
	c.addMethod0("isNumber", func(_ *Interpreter, recv Value) Value {
		return false
	})
	c.addMethod0("isString", func(_ *Interpreter, recv Value) Value {
		return false
	})

	c.addMethod0("printString", func(_ *Interpreter, recv Value) Value {
		return PrintString(recv)
	})
	c.addMethod0("displayString", func(in *Interpreter, recv Value) Value {
		return in.send(recv, "printString", nil)
	})

	c.addMethod1("error:", func(_ *Interpreter, recv Value, msg Value) Value {
		panic(&RuntimeError{
			Kind:     ErrUserError,
			Selector: "error:",
			Receiver: PrintString(recv),
			Message:  DisplayString(msg),
		})
	})
	c.addMethod0("subclassResponsibility", func(_ *Interpreter, recv Value) Value {
		panic(&RuntimeError{
			Kind:     ErrUserError,
			Receiver: PrintString(recv),
			Selector: "subclassResponsibility",
			Message:  "my subclass should have overridden this method",
		})
	})

	c.addMethod1("respondsTo:", func(in *Interpreter, recv Value, sel Value) Value {
		return lookup(recv, in.stringArg("respondsTo:", recv, sel)) != nil
	})
	c.addMethod1("isKindOf:", func(_ *Interpreter, recv Value, arg Value) Value {
		k, ok := arg.(*Class)
		return ok && ClassOf(recv).IsSubclassOf(k)
	})
	c.addMethod1("isMemberOf:", func(_ *Interpreter, recv Value, arg Value) Value {
		k, ok := arg.(*Class)
		return ok && ClassOf(recv) == k
	})

	c.addMethod1("perform:", func(in *Interpreter, recv Value, sel Value) Value {
		return in.send(recv, in.stringArg("perform:", recv, sel), nil)
	})
	c.addMethod2("perform:with:", func(in *Interpreter, recv Value, sel, arg Value) Value {
		return in.send(recv, in.stringArg("perform:with:", recv, sel), []Value{arg})
	})

	c.addMethod1("ifNil:", func(_ *Interpreter, recv Value, _ Value) Value {
		return recv
	})
	c.addMethod1("ifNotNil:", func(in *Interpreter, recv Value, blk Value) Value {
		return in.ifNotNil(recv, blk)
	})
	c.addMethod2("ifNil:ifNotNil:", func(in *Interpreter, recv Value, _, blk Value) Value {
		return in.ifNotNil(recv, blk)
	})

	u := b.undefinedObject
	u.addMethod0("isNil", func(_ *Interpreter, _ Value) Value {
		return true
	})
	u.addMethod0("notNil", func(_ *Interpreter, _ Value) Value {
		return false
	})
	u.addMethod1("ifNil:", func(in *Interpreter, _ Value, blk Value) Value {
		return in.evaluate(blk)
	})
	u.addMethod1("ifNotNil:", func(_ *Interpreter, _ Value, _ Value) Value {
		return nil
	})
	u.addMethod2("ifNil:ifNotNil:", func(in *Interpreter, _ Value, blk, _ Value) Value {
		return in.evaluate(blk)
	})
}

func (in *Interpreter) ifNotNil(recv, blk Value) Value {
	if b, ok := blk.(*BlockClosure); ok && b.NumArgs() == 1 {
		return in.callBlock(b, []Value{recv})
	}
	return in.evaluate(blk)
}

// ---------------------------------------------------------------------------
// Class Primitives (class-side protocol shared by every class)
// ---------------------------------------------------------------------------

func installClassPrimitives(b *BootLoader) {
	c := b.class

	c.addMethod0("new", func(in *Interpreter, recv Value) Value {
		obj := in.basicNew("new", recv)
		in.send(obj, "initialize", nil)
		return obj
	})
	c.addMethod0("basicNew", func(in *Interpreter, recv Value) Value {
		return in.basicNew("basicNew", recv)
	})
	c.addMethod0("name", func(_ *Interpreter, recv Value) Value {
		return recv.(*Class).Name
	})
	c.addMethod0("fullName", func(_ *Interpreter, recv Value) Value {
		return recv.(*Class).FullName()
	})
	c.addMethod0("namespace", func(_ *Interpreter, recv Value) Value {
		return recv.(*Class).Namespace
	})
	c.addMethod0("superclass", func(_ *Interpreter, recv Value) Value {
		if s := recv.(*Class).Superclass; s != nil {
			return s
		}
		return nil
	})
	c.addMethod0("instanceVariableNames", func(_ *Interpreter, recv Value) Value {
		names := recv.(*Class).AllInstVarNames()
		elems := make([]Value, len(names))
		for i, n := range names {
			elems[i] = n
		}
		return NewArray(elems...)
	})
	c.addMethod1("includesSelector:", func(in *Interpreter, recv Value, sel Value) Value {
		return recv.(*Class).Method(in.stringArg("includesSelector:", recv, sel)) != nil
	})
	c.addMethod1("inheritsFrom:", func(_ *Interpreter, recv Value, arg Value) Value {
		k, ok := arg.(*Class)
		self := recv.(*Class)
		return ok && self != k && self.IsSubclassOf(k)
	})
}

func (in *Interpreter) basicNew(selector string, recv Value) *Object {
	c, ok := recv.(*Class)
	if !ok {
		in.primitiveFailed(selector, recv, "receiver is not a class")
	}
	if c.sealed && c != Boot().object {
		panic(&RuntimeError{
			Kind:     ErrNotInstantiable,
			Selector: selector,
			Receiver: c.FullName(),
			Message:  c.Name + " has no instances created by " + selector,
		})
	}
	return c.BasicNew()
}

// ---------------------------------------------------------------------------
// Boolean Primitives
// ---------------------------------------------------------------------------

func installBooleanPrimitives(b *BootLoader) {
	c := b.boolean

	c.addMethod0("not", func(_ *Interpreter, recv Value) Value {
		return !recv.(bool)
	})
	c.addMethod1("&", func(in *Interpreter, recv Value, arg Value) Value {
		return recv.(bool) && in.boolArg("&", recv, arg)
	})
	c.addMethod1("|", func(in *Interpreter, recv Value, arg Value) Value {
		return recv.(bool) || in.boolArg("|", recv, arg)
	})
	c.addMethod1("xor:", func(in *Interpreter, recv Value, arg Value) Value {
		return recv.(bool) != in.boolArg("xor:", recv, arg)
	})
	c.addMethod1("=", func(_ *Interpreter, recv Value, arg Value) Value {
		return recv == arg
	})

	// and: and or: short-circuit: the block runs only when it decides the result.
	c.addMethod1("and:", func(in *Interpreter, recv Value, blk Value) Value {
		if !recv.(bool) {
			return false
		}
		return in.evaluate(blk)
	})
	c.addMethod1("or:", func(in *Interpreter, recv Value, blk Value) Value {
		if recv.(bool) {
			return true
		}
		return in.evaluate(blk)
	})

	c.addMethod1("ifTrue:", func(in *Interpreter, recv Value, blk Value) Value {
		if recv.(bool) {
			return in.evaluate(blk)
		}
		return nil
	})
	c.addMethod1("ifFalse:", func(in *Interpreter, recv Value, blk Value) Value {
		if !recv.(bool) {
			return in.evaluate(blk)
		}
		return nil
	})
	c.addMethod2("ifTrue:ifFalse:", func(in *Interpreter, recv Value, t, f Value) Value {
		if recv.(bool) {
			return in.evaluate(t)
		}
		return in.evaluate(f)
	})
	c.addMethod2("ifFalse:ifTrue:", func(in *Interpreter, recv Value, f, t Value) Value {
		if recv.(bool) {
			return in.evaluate(t)
		}
		return in.evaluate(f)
	})
}

func (in *Interpreter) boolArg(selector string, recv, v Value) bool {
	b, ok := boolValue(v)
	if !ok {
		in.primitiveFailed(selector, recv, "expected Boolean argument, got %s", PrintString(v))
	}
	return b
}
