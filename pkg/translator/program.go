package translator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/daimatz/jvmc/pkg/config"
	"github.com/daimatz/jvmc/pkg/deps"
	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/daimatz/jvmc/pkg/native"
)

var (
	ErrMultipleMain = errors.New("multiple main classes found")
	ErrNoMain       = errors.New("failed to find main class")
)

// FindMainClass returns the class declaring public static void
// main(String[]). When configured is set only that class is considered.
// No candidate is an error only if classes is not empty.
func FindMainClass(classes []*metadata.Class, configured string) (*metadata.Class, error) {
	want := strings.ReplaceAll(configured, ".", "/")
	var found *metadata.Class
	for _, c := range classes {
		if want != "" && c.Name != want {
			continue
		}
		if c.MainMethod() == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s and %s", ErrMultipleMain, found.Name, c.Name)
		}
		found = c
	}
	if found == nil && len(classes) > 0 {
		if want != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoMain, configured)
		}
		return nil, ErrNoMain
	}
	return found, nil
}

// Program is the set of classes selected for translation.
type Program struct {
	Classes []*metadata.Class
	Main    *metadata.Class
	Missing []string
}

// Plan loads the input classes and selects everything to translate: the
// runtime classes, classes matched by non_optimized patterns, the classes
// holding intrinsics and the main class, plus all they depend on.
// library names the classes available on the class path; they are only
// translated when selected.
func (t *Translator) Plan(inputs, library []string, l deps.Loader) (*Program, error) {
	p := &Program{}
	var loaded []*metadata.Class
	for _, name := range inputs {
		c, err := l.Load(name)
		if err != nil {
			t.Logger.Warn().Err(err).Str("class", name).Msg("failed to load input class")
			p.Missing = append(p.Missing, name)
			continue
		}
		loaded = append(loaded, c)
	}

	roots := append([]string(nil), native.Runtime...)
	roots = append(roots, native.MarkIntrinsics(t.Resolver, t.Config.Intrinsics, t.Logger)...)

	main, err := FindMainClass(loaded, t.Config.MainClass)
	if err != nil {
		return nil, err
	}
	p.Main = main

	keep, err := config.NewMatcher(t.Config.NonOptimized)
	if err != nil {
		return nil, err
	}
	roots = append(roots, keep.Filter(inputs)...)
	roots = append(roots, keep.Filter(library)...)
	if main != nil {
		roots = append(roots, main.Name)
	}

	classes, missing := deps.Closure(roots, l, t.Logger)
	p.Classes = classes
	p.Missing = append(p.Missing, missing...)
	sort.Strings(p.Missing)
	return p, nil
}

// Build plans the program and translates it.
func (t *Translator) Build(ctx context.Context, inputs, library []string, l deps.Loader) (*Result, error) {
	p, err := t.Plan(inputs, library, l)
	if err != nil {
		return nil, err
	}
	t.Logger.Info().Int("classes", len(p.Classes)).Int("missing", len(p.Missing)).Msg("translating")
	res := t.TranslateAll(ctx, p.Classes)
	res.Main = p.Main
	res.Missing = p.Missing
	return res, nil
}
