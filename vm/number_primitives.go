package vm

import (
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Number Primitives (SmallInteger and Float share the Number protocol)
// ---------------------------------------------------------------------------

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func (in *Interpreter) numberArg(selector string, recv, v Value) Value {
	switch v.(type) {
	case int64, float64:
		return v
	}
	in.primitiveFailed(selector, recv, "expected Number argument, got %s", PrintString(v))
	return nil
}

// arith applies an integer op when both operands are integers, else a float op.
func (in *Interpreter) arith(selector string, recv, arg Value, iop func(a, b int64) Value, fop func(a, b float64) Value) Value {
	arg = in.numberArg(selector, recv, arg)
	a, aInt := recv.(int64)
	b, bInt := arg.(int64)
	if aInt && bInt {
		return iop(a, b)
	}
	x, _ := toFloat(recv)
	y, _ := toFloat(arg)
	return fop(x, y)
}

func (in *Interpreter) compare(selector string, recv, arg Value, test func(c int) bool) Value {
	arg = in.numberArg(selector, recv, arg)
	a, aInt := recv.(int64)
	b, bInt := arg.(int64)
	if aInt && bInt {
		switch {
		case a < b:
			return test(-1)
		case a > b:
			return test(1)
		}
		return test(0)
	}
	x, _ := toFloat(recv)
	y, _ := toFloat(arg)
	switch {
	case x < y:
		return test(-1)
	case x > y:
		return test(1)
	case x == y:
		return test(0)
	}
	return false // NaN
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func installNumberPrimitives(b *BootLoader) {
	c := b.number

	c.addMethod1("+", func(in *Interpreter, recv Value, arg Value) Value {
		return in.arith("+", recv, arg,
			func(a, b int64) Value { return a + b },
			func(a, b float64) Value { return a + b })
	})
	c.addMethod1("-", func(in *Interpreter, recv Value, arg Value) Value {
		return in.arith("-", recv, arg,
			func(a, b int64) Value { return a - b },
			func(a, b float64) Value { return a - b })
	})
	c.addMethod1("*", func(in *Interpreter, recv Value, arg Value) Value {
		return in.arith("*", recv, arg,
			func(a, b int64) Value { return a * b },
			func(a, b float64) Value { return a * b })
	})
	c.addMethod1("/", func(in *Interpreter, recv Value, arg Value) Value {
		in.checkDivisor("/", recv, arg)
		return in.arith("/", recv, arg,
			func(a, b int64) Value {
				if a%b == 0 {
					return a / b
				}
				return float64(a) / float64(b)
			},
			func(a, b float64) Value { return a / b })
	})
	c.addMethod1("//", func(in *Interpreter, recv Value, arg Value) Value {
		in.checkDivisor("//", recv, arg)
		return in.arith("//", recv, arg,
			func(a, b int64) Value { return floorDiv(a, b) },
			func(a, b float64) Value { return int64(math.Floor(a / b)) })
	})
	c.addMethod1(`\\`, func(in *Interpreter, recv Value, arg Value) Value {
		in.checkDivisor(`\\`, recv, arg)
		return in.arith(`\\`, recv, arg,
			func(a, b int64) Value { return floorMod(a, b) },
			func(a, b float64) Value { return a - b*math.Floor(a/b) })
	})

	c.addMethod1("<", func(in *Interpreter, recv Value, arg Value) Value {
		return in.compare("<", recv, arg, func(c int) bool { return c < 0 })
	})
	c.addMethod1(">", func(in *Interpreter, recv Value, arg Value) Value {
		return in.compare(">", recv, arg, func(c int) bool { return c > 0 })
	})
	c.addMethod1("<=", func(in *Interpreter, recv Value, arg Value) Value {
		return in.compare("<=", recv, arg, func(c int) bool { return c <= 0 })
	})
	c.addMethod1(">=", func(in *Interpreter, recv Value, arg Value) Value {
		return in.compare(">=", recv, arg, func(c int) bool { return c >= 0 })
	})
	c.addMethod1("=", func(in *Interpreter, recv Value, arg Value) Value {
		if _, ok := toFloat(arg); !ok {
			return false
		}
		return in.compare("=", recv, arg, func(c int) bool { return c == 0 })
	})
	c.addMethod1("max:", func(in *Interpreter, recv Value, arg Value) Value {
		if IsTruthy(in.compare("max:", recv, arg, func(c int) bool { return c < 0 })) {
			return arg
		}
		return recv
	})
	c.addMethod1("min:", func(in *Interpreter, recv Value, arg Value) Value {
		if IsTruthy(in.compare("min:", recv, arg, func(c int) bool { return c > 0 })) {
			return arg
		}
		return recv
	})
	c.addMethod2("between:and:", func(in *Interpreter, recv Value, lo, hi Value) Value {
		return IsTruthy(in.compare("between:and:", recv, lo, func(c int) bool { return c >= 0 })) &&
			IsTruthy(in.compare("between:and:", recv, hi, func(c int) bool { return c <= 0 }))
	})

	c.addMethod0("isNumber", func(_ *Interpreter, _ Value) Value {
		return true
	})
	c.addMethod0("isZero", func(_ *Interpreter, recv Value) Value {
		f, _ := toFloat(recv)
		return f == 0
	})
	c.addMethod0("negated", func(_ *Interpreter, recv Value) Value {
		if n, ok := recv.(int64); ok {
			return -n
		}
		return -recv.(float64)
	})
	c.addMethod0("abs", func(_ *Interpreter, recv Value) Value {
		if n, ok := recv.(int64); ok {
			if n < 0 {
				return -n
			}
			return n
		}
		return math.Abs(recv.(float64))
	})
	c.addMethod0("squared", func(in *Interpreter, recv Value) Value {
		return in.send(recv, "*", []Value{recv})
	})
	c.addMethod0("sqrt", func(_ *Interpreter, recv Value) Value {
		f, _ := toFloat(recv)
		return math.Sqrt(f)
	})
	c.addMethod0("asFloat", func(_ *Interpreter, recv Value) Value {
		f, _ := toFloat(recv)
		return f
	})
	c.addMethod0("truncated", func(_ *Interpreter, recv Value) Value {
		if n, ok := recv.(int64); ok {
			return n
		}
		return int64(math.Trunc(recv.(float64)))
	})
	c.addMethod0("rounded", func(_ *Interpreter, recv Value) Value {
		if n, ok := recv.(int64); ok {
			return n
		}
		return int64(math.Round(recv.(float64)))
	})
	c.addMethod0("asInteger", func(in *Interpreter, recv Value) Value {
		return in.send(recv, "truncated", nil)
	})
	c.addMethod0("asString", func(_ *Interpreter, recv Value) Value {
		return PrintString(recv)
	})

	c.addMethod2("to:do:", func(in *Interpreter, recv Value, stop, blk Value) Value {
		start := in.intArg("to:do:", recv, recv)
		end := in.intArg("to:do:", recv, stop)
		body := in.blockArg("to:do:", recv, blk, 1)
		for i := start; i <= end; i++ {
			in.callBlock(body, []Value{i})
		}
		return recv
	})

	si := b.smallInteger
	si.addMethod0("even", func(_ *Interpreter, recv Value) Value {
		return recv.(int64)%2 == 0
	})
	si.addMethod0("odd", func(_ *Interpreter, recv Value) Value {
		return recv.(int64)%2 != 0
	})
	si.addMethod1("timesRepeat:", func(in *Interpreter, recv Value, blk Value) Value {
		body := in.blockArg("timesRepeat:", recv, blk, 0)
		for i := int64(0); i < recv.(int64); i++ {
			in.callBlock(body, nil)
		}
		return recv
	})
	si.addMethod1("printString:", func(in *Interpreter, recv Value, base Value) Value {
		radix := in.intArg("printString:", recv, base)
		if radix < 2 || radix > 36 {
			in.primitiveFailed("printString:", recv, "bad radix %d", radix)
		}
		return strconv.FormatInt(recv.(int64), int(radix))
	})
	si.addMethod0("asCharacter", func(_ *Interpreter, recv Value) Value {
		return Character(rune(recv.(int64)))
	})
}

func (in *Interpreter) checkDivisor(selector string, recv, arg Value) {
	if f, ok := toFloat(arg); ok && f == 0 {
		in.primitiveFailed(selector, recv, "division by zero")
	}
}
