package cmd

import (
	"fmt"
	"runtime"

	"github.com/haierkeys/page-notes-service/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	var short bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version info and exit",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), app.Version)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.Banner())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
	versionCmd.Flags().BoolVarP(&short, "short", "s", false, "print the version number only")

	rootCmd.AddCommand(versionCmd)
}
