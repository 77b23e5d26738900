package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/daimatz/jvmc/pkg/translator"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps <manifest>",
	Short: "Print the dependency manifest written by translate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		m, err := translator.UnmarshalManifest(data)
		if err != nil {
			return err
		}
		printManifest(cmd.OutOrStdout(), m)
		return nil
	},
}

func printManifest(w io.Writer, m *translator.Manifest) {
	if m.Main != "" {
		fmt.Fprintf(w, "main: %s\n", m.Main)
	}
	names := make([]string, 0, len(m.Classes))
	for n := range m.Classes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(w, n)
		for _, d := range m.Classes[n] {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	for _, n := range m.Missing {
		fmt.Fprintf(w, "%s %s\n", yellow("missing"), n)
	}
}
