// Package config holds the project settings read from jvmc.toml.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

// FileName is the project file looked up in directories and archives.
const FileName = "jvmc.toml"

// Config is the translator configuration.
type Config struct {
	// MainClass names the class holding the program entry point, in
	// dotted or internal form.
	MainClass string `toml:"main_class"`

	// NonOptimized lists class patterns kept even when nothing refers to
	// them.
	NonOptimized []string `toml:"non_optimized"`

	// SourceIgnores lists patterns of Java sources skipped by the glue
	// generator.
	SourceIgnores []string `toml:"source_ignores"`

	// Intrinsics lists methods treated as native, as pkg.Cls.name(desc).
	Intrinsics []string `toml:"intrinsics"`

	// Definitions are extra macro definitions written to the config
	// header, as NAME or NAME VALUE.
	Definitions []string `toml:"definitions"`

	ProjectFiles     bool `toml:"project_files"`
	LineNumbers      bool `toml:"line_numbers"`
	ValueChecks      bool `toml:"value_checks"`
	PlatformOverride bool `toml:"platform_override"`

	// Jobs bounds the number of classes translated concurrently.
	Jobs int `toml:"jobs"`
}

// Default returns the configuration used when no project file exists.
func Default() *Config {
	return &Config{
		LineNumbers: true,
		Jobs:        runtime.NumCPU(),
	}
}

// Parse decodes a project file on top of the defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(c)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	if c.Jobs < 1 {
		c.Jobs = 1
	}
	return c, nil
}

// Load reads and parses a project file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Merge folds a library's project file into c. Lists are appended and
// platform_override is or'ed; the main class and the other flags of c
// are kept.
func (c *Config) Merge(o *Config) {
	c.NonOptimized = append(c.NonOptimized, o.NonOptimized...)
	c.SourceIgnores = append(c.SourceIgnores, o.SourceIgnores...)
	c.Intrinsics = append(c.Intrinsics, o.Intrinsics...)
	c.Definitions = append(c.Definitions, o.Definitions...)
	c.PlatformOverride = c.PlatformOverride || o.PlatformOverride
}

// Header renders cn1_config.h.
func (c *Config) Header() []byte {
	var b bytes.Buffer
	b.WriteString("#ifndef __CN1_CONFIG_H__\n#define __CN1_CONFIG_H__\n\n")
	flag := func(name string, v bool) {
		n := 0
		if v {
			n = 1
		}
		fmt.Fprintf(&b, "#ifndef %s\n#define %s %d\n#endif\n\n", name, name, n)
	}
	flag("USE_LINE_NUMBERS", c.LineNumbers)
	flag("USE_VALUE_CHECKS", c.ValueChecks)
	flag("USE_PLATFORM_OVERRIDE", c.PlatformOverride)
	for _, d := range c.Definitions {
		fmt.Fprintf(&b, "#define %s\n", d)
	}
	if len(c.Definitions) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("#endif\n")
	return b.Bytes()
}
