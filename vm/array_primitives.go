package vm

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func installArrayPrimitives(b *BootLoader) {
	c := b.array

	c.addClassMethod0("new", func(_ *Interpreter, _ Value) Value {
		return NewArray()
	})
	c.addClassMethod1("new:", func(in *Interpreter, recv Value, size Value) Value {
		n := in.intArg("new:", recv, size)
		if n < 0 {
			in.primitiveFailed("new:", recv, "negative size %d", n)
		}
		return NewArray(make([]Value, n)...)
	})
	c.addClassMethodN("with:", func(_ *Interpreter, _ Value, args []Value) Value {
		return NewArray(append([]Value(nil), args...)...)
	})
	c.addClassMethodN("with:with:", func(_ *Interpreter, _ Value, args []Value) Value {
		return NewArray(append([]Value(nil), args...)...)
	})
	c.addClassMethodN("with:with:with:", func(_ *Interpreter, _ Value, args []Value) Value {
		return NewArray(append([]Value(nil), args...)...)
	})

	c.addMethod0("size", func(_ *Interpreter, recv Value) Value {
		return int64(len(recv.(*Array).Elems))
	})
	c.addMethod1("at:", func(in *Interpreter, recv Value, idx Value) Value {
		a := recv.(*Array)
		return a.Elems[in.index("at:", recv, idx, len(a.Elems))]
	})
	c.addMethod2("at:put:", func(in *Interpreter, recv Value, idx, v Value) Value {
		a := recv.(*Array)
		a.Elems[in.index("at:put:", recv, idx, len(a.Elems))] = v
		return v
	})
	c.addMethod0("first", func(in *Interpreter, recv Value) Value {
		a := recv.(*Array)
		return a.Elems[in.index("first", recv, int64(1), len(a.Elems))]
	})
	c.addMethod0("last", func(in *Interpreter, recv Value) Value {
		a := recv.(*Array)
		return a.Elems[in.index("last", recv, int64(len(a.Elems)), len(a.Elems))]
	})
	c.addMethod0("isEmpty", func(_ *Interpreter, recv Value) Value {
		return len(recv.(*Array).Elems) == 0
	})
	c.addMethod0("notEmpty", func(_ *Interpreter, recv Value) Value {
		return len(recv.(*Array).Elems) != 0
	})
	c.addMethod0("reversed", func(_ *Interpreter, recv Value) Value {
		src := recv.(*Array).Elems
		out := make([]Value, len(src))
		for i, e := range src {
			out[len(src)-1-i] = e
		}
		return NewArray(out...)
	})
	c.addMethod1(",", func(in *Interpreter, recv Value, arg Value) Value {
		o, ok := arg.(*Array)
		if !ok {
			in.primitiveFailed(",", recv, "expected Array argument, got %s", PrintString(arg))
		}
		out := append(append([]Value(nil), recv.(*Array).Elems...), o.Elems...)
		return NewArray(out...)
	})
	c.addMethod1("copyWith:", func(_ *Interpreter, recv Value, arg Value) Value {
		return NewArray(append(append([]Value(nil), recv.(*Array).Elems...), arg)...)
	})
	c.addMethod1("=", func(in *Interpreter, recv Value, arg Value) Value {
		o, ok := arg.(*Array)
		a := recv.(*Array)
		if !ok || len(o.Elems) != len(a.Elems) {
			return false
		}
		for i := range a.Elems {
			if !in.equal(a.Elems[i], o.Elems[i]) {
				return false
			}
		}
		return true
	})
	c.addMethod1("includes:", func(in *Interpreter, recv Value, arg Value) Value {
		for _, e := range recv.(*Array).Elems {
			if in.equal(e, arg) {
				return true
			}
		}
		return false
	})
	c.addMethod1("indexOf:", func(in *Interpreter, recv Value, arg Value) Value {
		for i, e := range recv.(*Array).Elems {
			if in.equal(e, arg) {
				return int64(i + 1)
			}
		}
		return int64(0)
	})

	c.addMethod1("do:", func(in *Interpreter, recv Value, blk Value) Value {
		body := in.blockArg("do:", recv, blk, 1)
		for _, e := range recv.(*Array).Elems {
			in.callBlock(body, []Value{e})
		}
		return recv
	})
	c.addMethod1("doWithIndex:", func(in *Interpreter, recv Value, blk Value) Value {
		body := in.blockArg("doWithIndex:", recv, blk, 2)
		for i, e := range recv.(*Array).Elems {
			in.callBlock(body, []Value{e, int64(i + 1)})
		}
		return recv
	})
	c.addMethod1("collect:", func(in *Interpreter, recv Value, blk Value) Value {
		body := in.blockArg("collect:", recv, blk, 1)
		src := recv.(*Array).Elems
		out := make([]Value, len(src))
		for i, e := range src {
			out[i] = in.callBlock(body, []Value{e})
		}
		return NewArray(out...)
	})
	c.addMethod1("select:", func(in *Interpreter, recv Value, blk Value) Value {
		return in.filter("select:", recv, blk, true)
	})
	c.addMethod1("reject:", func(in *Interpreter, recv Value, blk Value) Value {
		return in.filter("reject:", recv, blk, false)
	})
	c.addMethod2("detect:ifNone:", func(in *Interpreter, recv Value, blk, none Value) Value {
		body := in.blockArg("detect:ifNone:", recv, blk, 1)
		for _, e := range recv.(*Array).Elems {
			if IsTruthy(in.callBlock(body, []Value{e})) {
				return e
			}
		}
		return in.evaluate(none)
	})
	c.addMethod2("inject:into:", func(in *Interpreter, recv Value, acc, blk Value) Value {
		body := in.blockArg("inject:into:", recv, blk, 2)
		for _, e := range recv.(*Array).Elems {
			acc = in.callBlock(body, []Value{acc, e})
		}
		return acc
	})
}

func (in *Interpreter) filter(selector string, recv, blk Value, keep bool) Value {
	body := in.blockArg(selector, recv, blk, 1)
	var out []Value
	for _, e := range recv.(*Array).Elems {
		if IsTruthy(in.callBlock(body, []Value{e})) == keep {
			out = append(out, e)
		}
	}
	return NewArray(out...)
}
