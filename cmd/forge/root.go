package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/classforge/config"
	"github.com/chazu/classforge/toolchain"
)

var log = commonlog.GetLogger("classforge.forge")

var rootCmd = &cobra.Command{
	Use:               "forge",
	Short:             "Compile and run Maggie classes",
	Long:              "forge compiles Maggie class sources to .mclass artifacts, inspects artifacts, and runs classes compiled in memory.",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

var (
	verbosity int
	configDir string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log verbosity; repeat for more")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding "+config.FileName+" (default: search upward from the working directory)")
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	level := c.Log.Verbosity
	if cmd.Flags().Changed("verbose") {
		level = verbosity
	}
	commonlog.Configure(level, c.LogFile())
	cfg = c
	log.Debugf("configuration rooted at %s, class path %v", c.Dir, c.ClassPath())
	return nil
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	c, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return config.Default(), nil
	}
	return c, nil
}

// classPathFlag registers the --classpath flag on cmd.
func classPathFlag(cmd *cobra.Command) {
	cmd.Flags().String("classpath", "", "search path of artifact directories (default: from "+config.FileName+" and $"+config.PathEnv+")")
}

// classPath returns the --classpath value, or the configured path when the
// flag is unset.
func classPath(cmd *cobra.Command, c *config.Config) []string {
	if s, _ := cmd.Flags().GetString("classpath"); s != "" {
		return toolchain.ParseClassPath(s)
	}
	return c.ClassPath()
}
