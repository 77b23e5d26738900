package translator

import (
	"context"

	"github.com/daimatz/jvmc/pkg/annotation"
	"github.com/daimatz/jvmc/pkg/metadata"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a batch. Units holds every class that
// translated, in input order; Err aggregates the failures.
type Result struct {
	Units   []*Unit
	Main    *metadata.Class
	Missing []string
	Err     error
}

// Failed reports whether any class failed to translate.
func (r *Result) Failed() bool { return r.Err != nil }

// TranslateAll translates classes concurrently, at most Config.Jobs at a
// time. A failing class does not stop the others. Annotation defaults are
// merged for every class before any code is generated.
func (t *Translator) TranslateAll(ctx context.Context, classes []*metadata.Class) *Result {
	for _, c := range classes {
		annotation.ApplyClassDefaults(c, t.Resolver)
	}

	units := make([]*Unit, len(classes))
	errs := make([]error, len(classes))

	g, ctx := errgroup.WithContext(ctx)
	jobs := t.Config.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)
	for i, c := range classes {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			u, err := t.TranslateClass(c)
			if err != nil {
				t.Logger.Error().Err(err).Str("class", c.Name).Msg("translation failed")
				errs[i] = err
				return nil
			}
			t.Logger.Debug().Str("class", c.Name).Int("dependencies", len(u.Dependencies)).Msg("translated")
			units[i] = u
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{}
	var merr *multierror.Error
	for i := range classes {
		if errs[i] != nil {
			merr = multierror.Append(merr, errs[i])
			continue
		}
		res.Units = append(res.Units, units[i])
	}
	res.Err = merr.ErrorOrNil()
	return res
}
