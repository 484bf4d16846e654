package vm

// ---------------------------------------------------------------------------
// Block Primitives
// ---------------------------------------------------------------------------

func installBlockPrimitives(b *BootLoader) {
	c := b.blockClosure

	value := func(in *Interpreter, recv Value, args []Value) Value {
		return in.callBlock(recv.(*BlockClosure), args)
	}
	c.addMethodN("value", value)
	c.addMethodN("value:", value)
	c.addMethodN("value:value:", value)
	c.addMethodN("value:value:value:", value)
	c.addMethodN("value:value:value:value:", value)

	c.addMethod1("valueWithArguments:", func(in *Interpreter, recv Value, arg Value) Value {
		a, ok := arg.(*Array)
		if !ok {
			in.primitiveFailed("valueWithArguments:", recv, "expected Array argument, got %s", PrintString(arg))
		}
		return in.callBlock(recv.(*BlockClosure), append([]Value(nil), a.Elems...))
	})
	c.addMethod0("numArgs", func(_ *Interpreter, recv Value) Value {
		return int64(recv.(*BlockClosure).NumArgs())
	})

	c.addMethod1("whileTrue:", func(in *Interpreter, recv Value, blk Value) Value {
		return in.loop("whileTrue:", recv, blk, true)
	})
	c.addMethod1("whileFalse:", func(in *Interpreter, recv Value, blk Value) Value {
		return in.loop("whileFalse:", recv, blk, false)
	})
	c.addMethod0("repeat", func(in *Interpreter, recv Value) Value {
		cond := in.blockArg("repeat", recv, recv, 0)
		for {
			in.callBlock(cond, nil)
		}
	})
	c.addMethod1("ensure:", func(in *Interpreter, recv Value, blk Value) (result Value) {
		body := in.blockArg("ensure:", recv, recv, 0)
		after := in.blockArg("ensure:", recv, blk, 0)
		defer in.callBlock(after, nil)
		return in.callBlock(body, nil)
	})
}

func (in *Interpreter) loop(selector string, recv, blk Value, want bool) Value {
	cond := in.blockArg(selector, recv, recv, 0)
	body := in.blockArg(selector, recv, blk, 0)
	for {
		b, ok := boolValue(in.callBlock(cond, nil))
		if !ok {
			in.primitiveFailed(selector, recv, "condition did not answer a Boolean")
		}
		if b != want {
			return nil
		}
		in.callBlock(body, nil)
	}
}
