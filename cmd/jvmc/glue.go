package main

import (
	"fmt"
	"os"

	"github.com/daimatz/jvmc/pkg/sink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var glueCmd = &cobra.Command{
	Use:   "glue",
	Short: "Generate C bindings for native methods with inline code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.BindPFlag("config", cmd.Flags().Lookup("config"))
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sources, _ := cmd.Flags().GetStringSlice("source")
		output, _ := cmd.Flags().GetString("output")
		units, err := generateGlue(sources, cfg.SourceIgnores, sink.Dir{Root: output}, newLogger())
		fmt.Fprintf(os.Stderr, "%s %d glue units\n", green("generated"), len(units))
		return err
	},
}

func init() {
	flags := glueCmd.Flags()
	flags.StringSliceP("source", "s", nil, "Java source directory (repeatable)")
	flags.StringP("output", "o", "", "Output directory")
	flags.StringP("config", "c", "", "Project file supplying source_ignores")
	glueCmd.MarkFlagRequired("source")
	glueCmd.MarkFlagRequired("output")
}
