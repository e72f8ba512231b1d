package main

import (
	"fmt"
	"strings"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ctxvars",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ctxvars version %s\n", strings.TrimSpace(mozaiks.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
