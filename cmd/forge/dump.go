package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/vm"
)

var dumpCmd = &cobra.Command{
	Use:   "dump file.mclass...",
	Short: "Disassemble class artifacts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := dump(cmd.OutOrStdout(), data); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func dump(w io.Writer, data []byte) error {
	cf, err := classfile.Unmarshal(data)
	if err != nil {
		return err
	}
	digest := classfile.Digest(data)
	super := cf.Superclass
	if super == "" {
		super = "Object"
	}
	fmt.Fprintf(w, "class %s (%s, sha256 %x)\n", cf.BinaryName(), humanize.Bytes(uint64(len(data))), digest[:8])
	fmt.Fprintf(w, "  superclass: %s\n", super)
	if len(cf.InstVars) > 0 {
		fmt.Fprintf(w, "  instanceVars: %s\n", strings.Join(cf.InstVars, " "))
	}
	if len(cf.Imports) > 0 {
		fmt.Fprintf(w, "  imports: %s\n", strings.Join(cf.Imports, " "))
	}
	if cf.SourceName != "" {
		fmt.Fprintf(w, "  source: %s\n", cf.SourceName)
	}
	for i := range cf.Methods {
		dumpMethod(w, "method", &cf.Methods[i])
	}
	for i := range cf.ClassMethods {
		dumpMethod(w, "classMethod", &cf.ClassMethods[i])
	}
	return nil
}

func dumpMethod(w io.Writer, kind string, m *classfile.Method) {
	fmt.Fprintf(w, "\n  %s %s (args %d, temps %d)\n", kind, m.Selector, m.NumArgs, m.NumTemps)
	dumpLiterals(w, m.Literals)
	fmt.Fprintln(w, indent(vm.Disassemble(m.Bytecode), "    "))
	for i, b := range m.Blocks {
		fmt.Fprintf(w, "    block %d (args %d, temps %d)\n", i, b.NumArgs, b.NumTemps)
		dumpLiterals(w, b.Literals)
		fmt.Fprintln(w, indent(vm.Disassemble(b.Bytecode), "      "))
	}
}

func dumpLiterals(w io.Writer, lits []classfile.Literal) {
	for i, lit := range lits {
		fmt.Fprintf(w, "    #%d %s %s\n", i, lit.Kind, literalText(lit))
	}
}

func literalText(lit classfile.Literal) string {
	switch lit.Kind {
	case classfile.LitInt:
		return fmt.Sprint(lit.Int)
	case classfile.LitChar:
		return "$" + string(rune(lit.Int))
	case classfile.LitFloat:
		return fmt.Sprint(lit.Float)
	case classfile.LitString:
		return fmt.Sprintf("%q", lit.Str)
	case classfile.LitArray:
		parts := make([]string, len(lit.Elems))
		for i, e := range lit.Elems {
			parts[i] = literalText(e)
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return lit.Str
}

func indent(s, prefix string) string {
	if s == "" {
		return prefix + "(empty)"
	}
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
