package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/daimatz/jvmc/pkg/config"
	"github.com/daimatz/jvmc/pkg/deps"
	"github.com/daimatz/jvmc/pkg/glue"
	"github.com/daimatz/jvmc/pkg/loader"
	"github.com/daimatz/jvmc/pkg/sink"
	"github.com/daimatz/jvmc/pkg/translator"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate class directories and archives to C",
	Args:  cobra.NoArgs,
	RunE:  runTranslate,
}

func init() {
	flags := translateCmd.Flags()
	flags.StringSliceP("input", "i", nil, "Class directory, jar or jmod to translate (repeatable)")
	flags.StringSliceP("source", "s", nil, "Java source directory scanned for native glue (repeatable)")
	flags.StringP("output", "o", "", "Output directory")
	flags.StringP("main", "m", "", "Main class, overrides main_class")
	flags.StringP("config", "c", "", "Project file (default ./"+config.FileName+" when present)")
	flags.IntP("jobs", "j", 0, "Classes translated concurrently, overrides jobs")
	flags.String("jmod", "", "java.base.jmod supplying the JDK classes")
	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")

	viper.BindPFlag("main", flags.Lookup("main"))
	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("jobs", flags.Lookup("jobs"))
	viper.BindPFlag("jmod", flags.Lookup("jmod"))
}

// loadConfig reads the project file named by --config, or the one in the
// working directory.
func loadConfig() (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.FileName); err == nil {
		return config.Load(config.FileName)
	}
	return config.Default(), nil
}

// libraryConfig returns the project file bundled with an input, if any.
func libraryConfig(path string, cl loader.ClassLoader) (*config.Config, error) {
	var (
		data []byte
		ok   bool
		err  error
	)
	switch l := cl.(type) {
	case *loader.ArchiveLoader:
		data, ok, err = l.Resource(config.FileName)
	case *loader.DirLoader:
		data, err = os.ReadFile(filepath.Join(l.Root, config.FileName))
		ok = err == nil
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	}
	if err != nil || !ok {
		return nil, err
	}
	c, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

type inputs struct {
	chain   loader.Chain
	names   []string
	library []string
}

func openInputs(paths []string, cfg *config.Config, log zerolog.Logger) (*inputs, error) {
	in := &inputs{}
	for _, path := range paths {
		cl, err := loader.Open(path)
		if err != nil {
			return nil, err
		}
		names, err := loader.Scan(path)
		if err != nil {
			return nil, err
		}
		lc, err := libraryConfig(path, cl)
		if err != nil {
			return nil, err
		}
		if lc != nil {
			log.Debug().Str("input", path).Msg("merging bundled project file")
			cfg.Merge(lc)
		}
		in.chain = append(in.chain, cl)
		in.names = append(in.names, names...)
		log.Info().Str("input", path).Int("classes", len(names)).Msg("opened input")
	}

	jmod := viper.GetString("jmod")
	if jmod == "" {
		jmod = findJmodPath()
	}
	if jmod == "" {
		log.Warn().Msg("java.base.jmod not found, JDK classes are unresolved; set JAVA_HOME or JAVA_BASE_JMOD")
		return in, nil
	}
	library, err := loader.Scan(jmod)
	if err != nil {
		return nil, err
	}
	in.chain = append(in.chain, loader.NewArchiveLoader(jmod))
	in.library = library
	log.Info().Str("jmod", jmod).Int("classes", len(library)).Msg("opened JDK")
	return in, nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if m := viper.GetString("main"); m != "" {
		cfg.MainClass = m
	}
	if j := viper.GetInt("jobs"); j > 0 {
		cfg.Jobs = j
	}

	paths, _ := cmd.Flags().GetStringSlice("input")
	sources, _ := cmd.Flags().GetStringSlice("source")
	output, _ := cmd.Flags().GetString("output")

	in, err := openInputs(paths, cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := loader.New(in.chain)
	t := translator.New(cfg, deps.Resolver{Loader: l}, log)
	res, err := t.Build(ctx, in.names, in.library, l)
	if err != nil {
		return err
	}
	out := sink.Dir{Root: output}
	if err := t.Write(res, out); err != nil {
		return err
	}

	var merr *multierror.Error
	if res.Failed() {
		merr = multierror.Append(merr, res.Err)
	}
	units, err := generateGlue(sources, cfg.SourceIgnores, out, log)
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	fmt.Fprintf(os.Stderr, "%s %d classes, %d glue units\n", green("translated"), len(res.Units), len(units))
	if len(res.Missing) > 0 {
		fmt.Fprintf(os.Stderr, "%s %d classes could not be loaded\n", yellow("missing"), len(res.Missing))
	}
	return merr.ErrorOrNil()
}

func generateGlue(dirs, ignores []string, s sink.Sink, log zerolog.Logger) ([]string, error) {
	g := glue.NewGenerator(log)
	var written []string
	var merr *multierror.Error
	for _, dir := range dirs {
		src, err := glue.NewDirSource(dir, ignores)
		if err != nil {
			return written, err
		}
		units, err := g.GenerateAll(src, s)
		written = append(written, units...)
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return written, merr.ErrorOrNil()
}
