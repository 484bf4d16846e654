// Package config handles classforge.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/classforge/toolchain"
)

// FileName is the name of the configuration file.
const FileName = "classforge.toml"

// DefaultToolchain is the toolchain used when none is configured.
const DefaultToolchain = "maggie"

// PathEnv names the environment variable whose directories are searched
// before the configured class path.
const PathEnv = "CLASSFORGE_PATH"

// Config represents a classforge.toml configuration.
type Config struct {
	Compiler     Compiler              `toml:"compiler"`
	Source       Source                `toml:"source"`
	Runtime      Runtime               `toml:"runtime"`
	Log          Log                   `toml:"log"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the classforge.toml file (set at
	// load time). Relative paths are resolved against it.
	Dir string `toml:"-"`
}

// Compiler configures compilation.
type Compiler struct {
	Toolchain string   `toml:"toolchain"`
	ClassPath []string `toml:"classpath"`
	Output    string   `toml:"output"`
}

// Source configures source file locations.
type Source struct {
	Dirs []string `toml:"dirs"`
}

// Runtime configures the interpreter.
type Runtime struct {
	MaxDepth int `toml:"max-depth"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Dependency is a directory of precompiled artifacts added to the class
// path.
type Dependency struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no classforge.toml exists,
// rooted at the working directory.
func Default() *Config {
	c := &Config{Dir: "."}
	if wd, err := os.Getwd(); err == nil {
		c.Dir = wd
	}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Compiler.Toolchain == "" {
		c.Compiler.Toolchain = DefaultToolchain
	}
	if c.Compiler.Output == "" {
		c.Compiler.Output = "out"
	}
	if len(c.Source.Dirs) == 0 {
		c.Source.Dirs = []string{"src"}
	}
	if c.Runtime.MaxDepth <= 0 {
		c.Runtime.MaxDepth = 1000
	}
}

// Load parses a classforge.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	for name, dep := range c.Dependencies {
		if dep.Path == "" {
			return nil, fmt.Errorf("%s: dependency %s has no path", path, name)
		}
	}

	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a classforge.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ClassPath returns the search path: the directories of CLASSFORGE_PATH,
// then [compiler] classpath, then every dependency in name order.
func (c *Config) ClassPath() []string {
	out := toolchain.ParseClassPath(os.Getenv(PathEnv))
	for _, p := range c.Compiler.ClassPath {
		out = append(out, c.abs(p))
	}

	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, c.abs(c.Dependencies[name].Path))
	}
	return out
}

// ClassPathString returns ClassPath as an OS path list.
func (c *Config) ClassPathString() string {
	return toolchain.JoinClassPath(c.ClassPath())
}

// OutputDir returns the absolute directory compiled artifacts are written
// to.
func (c *Config) OutputDir() string {
	return c.abs(c.Compiler.Output)
}

// SourceDirPaths returns absolute paths for the configured source
// directories.
func (c *Config) SourceDirPaths() []string {
	var paths []string
	for _, d := range c.Source.Dirs {
		paths = append(paths, c.abs(d))
	}
	return paths
}

// LogFile returns the absolute log file path, or nil to log to stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	p := c.abs(c.Log.File)
	return &p
}
