package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [events.jsonl]",
	Short: "Replay an event log against a fresh session",
	Long: `Bootstraps a session, then feeds a JSONL log of agent messages
({"sender": "...", "content": "..."}) through the trigger engine in order and
prints the point at which each derived variable flipped. Reads stdin when no
file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open event log: %w", err)
			}
			defer f.Close()
			in = f
		}

		eng, err := cli.CreateEngine(cmd.Context(), engineOptions(cmd), logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		inputs, err := sessionInputs(cmd)
		if err != nil {
			return err
		}
		s, err := eng.Start(cmd.Context(), inputs)
		if err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		p := printer(cmd)
		var printErr error
		err = cli.Replay(cmd.Context(), s, in, func(step cli.ReplayStep) {
			if printErr == nil {
				printErr = p.Step(step)
			}
		})
		if err != nil {
			return err
		}
		if printErr != nil {
			return printErr
		}

		if final, _ := cmd.Flags().GetBool("final"); final {
			return p.Snapshot(s.Snapshot())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	sessionFlags(replayCmd)
	replayCmd.Flags().Bool("final", true, "Print the final snapshot after replay")
}
