package main

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "jvmc",
	Short:         "Translate JVM class files to C",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		processGlobalFlags()
	},
}

func init() {
	viper.SetEnvPrefix("JVMC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("no-color", false, "Disable colored output")
	viper.BindPFlags(flags)

	rootCmd.AddCommand(translateCmd, glueCmd, depsCmd)
}

func processGlobalFlags() {
	if viper.GetBool("no-color") || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(err)
	}
}
