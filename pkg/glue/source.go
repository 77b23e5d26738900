package glue

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/daimatz/jvmc/pkg/config"
	"github.com/daimatz/jvmc/pkg/sink"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Source supplies the Java files to scan. Paths are slash separated and
// relative to the source root.
type Source interface {
	Files() ([]string, error)
	Read(path string) (string, error)
}

// DirSource reads .java files below Root. Files and directories whose
// path, without the .java extension, matches an ignore pattern are
// skipped.
type DirSource struct {
	Root    string
	Ignores config.Matcher
}

// NewDirSource creates a DirSource with compiled ignore patterns.
func NewDirSource(root string, ignores []string) (*DirSource, error) {
	m, err := config.NewMatcher(ignores)
	if err != nil {
		return nil, err
	}
	return &DirSource{Root: root, Ignores: m}, nil
}

func (d *DirSource) Files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.Root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if e.IsDir() {
			if rel != "." && d.Ignores.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(rel, ".java") || d.Ignores.Match(strings.TrimSuffix(rel, ".java")) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glue: scan %s: %w", d.Root, err)
	}
	return out, nil
}

func (d *DirSource) Read(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("glue: %w", err)
	}
	return string(data), nil
}

// Generator writes the glue of every file of a Source.
type Generator struct {
	Logger zerolog.Logger
}

// NewGenerator creates a new Generator.
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{Logger: log}
}

// GenerateAll generates and writes the glue of every file. A failing file
// does not stop the others; the failures are returned together. The names
// of the written units are returned in source order.
func (g *Generator) GenerateAll(src Source, s sink.Sink) ([]string, error) {
	files, err := src.Files()
	if err != nil {
		return nil, err
	}
	var written []string
	var merr *multierror.Error
	for _, path := range files {
		name, err := g.generate(src, s, path)
		if err != nil {
			g.Logger.Error().Err(err).Str("file", path).Msg("glue generation failed")
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if name != "" {
			written = append(written, name)
		}
	}
	return written, merr.ErrorOrNil()
}

func (g *Generator) generate(src Source, s sink.Sink, path string) (string, error) {
	code, err := src.Read(path)
	if err != nil {
		return "", err
	}
	out, warnings, err := Generate(path, code)
	if err != nil {
		return "", err
	}
	for _, w := range warnings {
		g.Logger.Warn().Str("file", w.File).Str("method", w.Method).Msg("no native method body")
	}
	if out == nil {
		g.Logger.Debug().Str("file", path).Msg("no native code, skipping")
		return "", nil
	}
	name := UnitName(path)
	if err := s.Write(name, out); err != nil {
		return "", err
	}
	g.Logger.Info().Str("file", path).Str("unit", name).Msg("generated glue")
	return name, nil
}
