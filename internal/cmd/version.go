package cmd

import (
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/server/handlers"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version. --extended adds the build stamp, Go runtime and dependency versions.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		writeVersion(cmd.OutOrStdout(), extended)
		return nil
	},
}

func writeVersion(w io.Writer, full bool) {
	fmt.Fprintf(w, "%s %s\n", config.AppName, versionInfo.Version)
	if !full {
		return
	}
	fmt.Fprintf(w, "Commit: %s\nBuilt:  %s\nGo:     %s\n", versionInfo.Commit, versionInfo.BuildDate, runtime.Version())

	deps := handlers.DependencyVersions()
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "%-10s %s\n", name+":", deps[name])
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "include build and dependency details")
}
