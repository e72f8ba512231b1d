package main

import (
	"fmt"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/cli"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Bootstrap a session and print its context",
	Long: `Resolves every source of the manifest for one session, applies the production
gate and prints the resulting snapshot, or the variables visible to one agent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		eng, err := cli.CreateEngine(cmd.Context(), engineOptions(cmd), logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		in, err := sessionInputs(cmd)
		if err != nil {
			return err
		}
		s, err := eng.Start(cmd.Context(), in)
		if err != nil {
			// The session still runs with an empty context; report and fail.
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		p := printer(cmd)
		if agent, _ := cmd.Flags().GetString("agent"); agent != "" {
			return p.Value(s.VisibleTo(agent))
		}
		return p.Snapshot(s.Snapshot())
	},
}

func sessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("scope", "", "Enterprise scope (tenant) of the session")
	cmd.Flags().String("session", "", "Session ID (generated when empty)")
	cmd.Flags().StringToString("input", nil, "Session inputs for $-prefixed lookup keys (name=value)")
	_ = cmd.MarkFlagRequired("scope")
}

func sessionInputs(cmd *cobra.Command) (domain.SessionInputs, error) {
	scope, _ := cmd.Flags().GetString("scope")
	id, _ := cmd.Flags().GetString("session")
	values, err := cmd.Flags().GetStringToString("input")
	if err != nil {
		return domain.SessionInputs{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	return domain.SessionInputs{SessionID: id, EnterpriseScope: scope, Values: values}, nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	sessionFlags(resolveCmd)
	resolveCmd.Flags().String("agent", "", "Print only the variables visible to this agent")
}
