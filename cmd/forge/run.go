package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/classforge/jit"
	"github.com/chazu/classforge/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] file.mag acme.Name",
	Short: "Compile a unit in memory and run an instance of one of its classes",
	Long: `Compiles file.mag in memory as the unit acme.Name, loads that class,
sends it new and, with -m, sends the selector to the instance. The result is
printed. Nothing is written to disk.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := jit.FromConfig(cfg)
		if err != nil {
			return err
		}
		c.ClassPath = classPath(cmd, cfg)
		selector, _ := cmd.Flags().GetString("message")
		return runUnit(c, args[0], args[1], selector, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	classPathFlag(runCmd)
	runCmd.Flags().StringP("message", "m", "", "unary selector to send to the new instance")
	rootCmd.AddCommand(runCmd)
}

func runUnit(c *jit.Compiler, file, name, selector string, stdout, stderr io.Writer) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	obj, err := c.CompiledInstance(string(src), name)
	if err != nil {
		var ce *jit.CompilationError
		if errors.As(err, &ce) && len(ce.Diagnostics) > 0 {
			fmt.Fprintln(stderr, err)
			return handled(err)
		}
		return err
	}

	result := obj
	if selector != "" {
		in := vm.NewInterpreter()
		if c.MaxDepth > 0 {
			in.MaxDepth = c.MaxDepth
		}
		if result, err = in.Send(obj, selector); err != nil {
			return fmt.Errorf("%s>>%s: %w", name, selector, err)
		}
	}
	fmt.Fprintln(stdout, vm.PrintString(result))
	return nil
}
