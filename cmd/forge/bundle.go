package main

import (
	"fmt"
	"io"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/tools/txtar"

	"github.com/chazu/classforge/classfile"
	"github.com/chazu/classforge/jit"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle file.txtar",
	Short: "Compile every unit of a txtar bundle in memory",
	Long: `Compiles each .mag file of a txtar archive in memory, one compilation per
file, and reports the artifact produced for it. The unit name is the file's
path inside the archive: acme/Greeter.mag is acme.Greeter.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ar, err := txtar.ParseFile(args[0])
		if err != nil {
			return err
		}
		c, err := jit.FromConfig(cfg)
		if err != nil {
			return err
		}
		c.ClassPath = classPath(cmd, cfg)
		return compileBundle(c, ar, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	classPathFlag(bundleCmd)
	rootCmd.AddCommand(bundleCmd)
}

// bundleUnitName maps an archive path to a unit name.
func bundleUnitName(file string) string {
	return strings.ReplaceAll(strings.TrimSuffix(file, path.Ext(file)), "/", ".")
}

// compileBundle compiles each source of ar independently. Failures are
// reported and counted; the remaining files are still compiled.
func compileBundle(c *jit.Compiler, ar *txtar.Archive, stdout, stderr io.Writer) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	failed, total := 0, 0
	var size uint64
	for _, f := range ar.Files {
		if path.Ext(f.Name) != classfile.SourceExtension {
			log.Debugf("bundle: skipping %s", f.Name)
			continue
		}
		total++
		name := bundleUnitName(f.Name)
		data, err := c.CompiledClassData(string(f.Data), name)
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", f.Name, err)
			continue
		}
		digest := classfile.Digest(data)
		size += uint64(len(data))
		fmt.Fprintf(tw, "%s\t%s\t%x\n", name, humanize.Bytes(uint64(len(data))), digest[:6])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d of %d unit(s) compiled, %s\n", total-failed, total, humanize.Bytes(size))
	if failed > 0 {
		return handled(fmt.Errorf("%d unit(s) failed", failed))
	}
	return nil
}
