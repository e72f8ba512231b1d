package main

import (
	"errors"
	"fmt"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/presentation/tui"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [manifest...]",
	Short: "Check manifests for structural errors",
	Long: `Validates one or more layered manifests and reports every issue with its path.
Warnings (unknown sections, derived variables without triggers) do not fail validation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			paths, _ = cmd.Flags().GetStringSlice("manifest")
		}
		out := cmd.OutOrStdout()

		m, err := manifest.LoadFiles(paths...)
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				for _, issue := range ve.Issues {
					fmt.Fprintln(out, tui.Status(false, issue.String()))
				}
			}
			return fmt.Errorf("validation failed: %w", err)
		}

		for _, w := range m.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		fmt.Fprintln(out, tui.Status(true, fmt.Sprintf("manifest is valid (%d variables, %d agents)", m.Len(), len(m.Agents()))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
