package vm

import (
	"strconv"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

func installStringPrimitives(b *BootLoader) {
	c := b.string

	b.string.addClassMethod0("new", func(_ *Interpreter, _ Value) Value {
		return ""
	})

	c.addMethod1(",", func(in *Interpreter, recv Value, arg Value) Value {
		return recv.(string) + in.stringArg(",", recv, arg)
	})
	c.addMethod1("=", func(_ *Interpreter, recv Value, arg Value) Value {
		s, ok := arg.(string)
		return ok && s == recv.(string)
	})
	c.addMethod1("<", func(in *Interpreter, recv Value, arg Value) Value {
		return recv.(string) < in.stringArg("<", recv, arg)
	})
	c.addMethod1(">", func(in *Interpreter, recv Value, arg Value) Value {
		return recv.(string) > in.stringArg(">", recv, arg)
	})
	c.addMethod0("size", func(_ *Interpreter, recv Value) Value {
		return int64(len([]rune(recv.(string))))
	})
	c.addMethod1("at:", func(in *Interpreter, recv Value, idx Value) Value {
		runes := []rune(recv.(string))
		return Character(runes[in.index("at:", recv, idx, len(runes))])
	})
	c.addMethod2("copyFrom:to:", func(in *Interpreter, recv Value, from, to Value) Value {
		runes := []rune(recv.(string))
		start := in.index("copyFrom:to:", recv, from, len(runes)+1)
		end := in.intArg("copyFrom:to:", recv, to)
		if end < int64(start) || end > int64(len(runes)) {
			in.primitiveFailed("copyFrom:to:", recv, "bad range %d to %d", start+1, end)
		}
		return string(runes[start:end])
	})
	c.addMethod1("do:", func(in *Interpreter, recv Value, blk Value) Value {
		body := in.blockArg("do:", recv, blk, 1)
		for _, r := range recv.(string) {
			in.callBlock(body, []Value{Character(r)})
		}
		return recv
	})
	c.addMethod0("reversed", func(_ *Interpreter, recv Value) Value {
		runes := []rune(recv.(string))
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})
	c.addMethod0("asUppercase", func(_ *Interpreter, recv Value) Value {
		return strings.ToUpper(recv.(string))
	})
	c.addMethod0("asLowercase", func(_ *Interpreter, recv Value) Value {
		return strings.ToLower(recv.(string))
	})
	c.addMethod0("trimSeparators", func(_ *Interpreter, recv Value) Value {
		return strings.TrimSpace(recv.(string))
	})
	c.addMethod0("asSymbol", func(_ *Interpreter, recv Value) Value {
		return Symbol(recv.(string))
	})
	c.addMethod0("asString", func(_ *Interpreter, recv Value) Value {
		return recv
	})
	c.addMethod0("displayString", func(_ *Interpreter, recv Value) Value {
		return recv
	})
	c.addMethod0("asInteger", func(_ *Interpreter, recv Value) Value {
		n, err := strconv.ParseInt(strings.TrimSpace(recv.(string)), 10, 64)
		if err != nil {
			return nil
		}
		return n
	})
	c.addMethod0("isString", func(_ *Interpreter, _ Value) Value {
		return true
	})
	c.addMethod0("isEmpty", func(_ *Interpreter, recv Value) Value {
		return recv.(string) == ""
	})
	c.addMethod0("notEmpty", func(_ *Interpreter, recv Value) Value {
		return recv.(string) != ""
	})
	c.addMethod1("includesSubstring:", func(in *Interpreter, recv Value, arg Value) Value {
		return strings.Contains(recv.(string), in.stringArg("includesSubstring:", recv, arg))
	})
	c.addMethod1("startsWith:", func(in *Interpreter, recv Value, arg Value) Value {
		return strings.HasPrefix(recv.(string), in.stringArg("startsWith:", recv, arg))
	})
	c.addMethod1("endsWith:", func(in *Interpreter, recv Value, arg Value) Value {
		return strings.HasSuffix(recv.(string), in.stringArg("endsWith:", recv, arg))
	})
	c.addMethod1("occurrencesOf:", func(_ *Interpreter, recv Value, arg Value) Value {
		ch, ok := arg.(Character)
		if !ok {
			return int64(0)
		}
		return int64(strings.Count(recv.(string), string(rune(ch))))
	})

	// Symbol
	s := b.symbol
	s.addMethod1("=", func(_ *Interpreter, recv Value, arg Value) Value {
		return recv == arg
	})
	s.addMethod0("size", func(_ *Interpreter, recv Value) Value {
		return int64(len([]rune(string(recv.(Symbol)))))
	})
	s.addMethod0("asString", func(_ *Interpreter, recv Value) Value {
		return string(recv.(Symbol))
	})
	s.addMethod0("asSymbol", func(_ *Interpreter, recv Value) Value {
		return recv
	})
	s.addMethod0("displayString", func(_ *Interpreter, recv Value) Value {
		return string(recv.(Symbol))
	})
	s.addMethod0("numArgs", func(_ *Interpreter, recv Value) Value {
		return int64(selectorArity(string(recv.(Symbol))))
	})

	// Character
	ch := b.character
	ch.addClassMethod1("value:", func(in *Interpreter, recv Value, code Value) Value {
		return Character(rune(in.intArg("value:", recv, code)))
	})
	ch.addMethod1("=", func(_ *Interpreter, recv Value, arg Value) Value {
		return recv == arg
	})
	ch.addMethod1("<", func(in *Interpreter, recv Value, arg Value) Value {
		o, ok := arg.(Character)
		if !ok {
			in.primitiveFailed("<", recv, "expected Character argument, got %s", PrintString(arg))
		}
		return recv.(Character) < o
	})
	ch.addMethod0("value", func(_ *Interpreter, recv Value) Value {
		return int64(recv.(Character))
	})
	ch.addMethod0("asString", func(_ *Interpreter, recv Value) Value {
		return string(rune(recv.(Character)))
	})
	ch.addMethod0("displayString", func(_ *Interpreter, recv Value) Value {
		return string(rune(recv.(Character)))
	})
	ch.addMethod0("asUppercase", func(_ *Interpreter, recv Value) Value {
		return Character(unicode.ToUpper(rune(recv.(Character))))
	})
	ch.addMethod0("asLowercase", func(_ *Interpreter, recv Value) Value {
		return Character(unicode.ToLower(rune(recv.(Character))))
	})
	ch.addMethod0("isLetter", func(_ *Interpreter, recv Value) Value {
		return unicode.IsLetter(rune(recv.(Character)))
	})
	ch.addMethod0("isDigit", func(_ *Interpreter, recv Value) Value {
		return unicode.IsDigit(rune(recv.(Character)))
	})
	ch.addMethod0("isVowel", func(_ *Interpreter, recv Value) Value {
		return strings.ContainsRune("aeiouAEIOU", rune(recv.(Character)))
	})
}
