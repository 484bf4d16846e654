package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/classforge/config"
	"github.com/chazu/classforge/toolchain"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] file.mag...",
	Short: "Compile source units to artifacts on disk",
	Long: `Compiles each file as one unit. The unit name comes from the file's place
below a configured source directory (src/acme/Greeter.mag is acme.Greeter),
or from its base name. Artifacts are written under the output directory,
which is also searched for references between the units.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		return compileFiles(cfg, args, classPath(cmd, cfg), out, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	classPathFlag(compileCmd)
	compileCmd.Flags().StringP("out", "d", "", "output directory (default: [compiler] output)")
	rootCmd.AddCommand(compileCmd)
}

// compileFiles runs the configured toolchain over files, writing artifacts
// below outDir. Diagnostics go to stderr, the toolchain transcript to
// stdout.
func compileFiles(c *config.Config, files, classPath []string, outDir string, stdout, stderr io.Writer) error {
	if outDir == "" {
		outDir = c.OutputDir()
	}
	tc, err := toolchain.Lookup(c.Compiler.Toolchain)
	if err != nil {
		return err
	}

	units := make([]toolchain.SourceFile, 0, len(files))
	for _, f := range files {
		path, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		name := c.UnitName(path)
		log.Debugf("unit %s from %s", name, path)
		units = append(units, toolchain.SourceFromDisk(path, name))
	}

	searchPath := append([]string{outDir}, classPath...)
	fm := toolchain.NewStandardFileManager(searchPath, outDir)
	defer fm.Close()

	diags := toolchain.NewCollector()
	err = tc.Run(&toolchain.Task{
		Units:       units,
		FileManager: fm,
		Diagnostics: diags,
		Transcript:  stdout,
		ClassPath:   searchPath,
	})
	if diags.Len() > 0 {
		fmt.Fprintln(stderr, diags.String())
	}
	if errors.Is(err, toolchain.ErrCompilationFailed) {
		return handled(fmt.Errorf("%d error(s)", len(diags.Errors())))
	}
	return err
}
