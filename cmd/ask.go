package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/opengov-labs/govassist/internal/pipeline"
)

var askMode string

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask about governance proposals from the command line",
	Long:  "Runs one prompt through the assistant. Modes: chat (routed question answering), analyze (summary/comparison), accountability (governance rubric), extract (ids and links only).",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		prompt := strings.Join(args, " ")

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if askMode == "extract" {
			extraction := env.Assistant.Extract(ctx, prompt)
			out, err := json.MarshalIndent(extraction, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal extraction")
			}
			fmt.Println(string(out))
			return nil
		}

		var result *pipeline.Result
		switch askMode {
		case "chat":
			result = env.Assistant.Chat(ctx, prompt)
		case "analyze":
			result = env.Assistant.Analyze(ctx, prompt)
		case "accountability":
			result = env.Assistant.Accountability(ctx, prompt)
		default:
			return eris.Errorf("unknown mode %q (want chat, analyze, accountability or extract)", askMode)
		}

		fmt.Println(result.Analysis)
		if len(result.IDs) > 0 {
			fmt.Printf("\nProposals: %s\n", strings.Join(result.IDs, ", "))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askMode, "mode", "chat", "one of chat, analyze, accountability, extract")
	rootCmd.AddCommand(askCmd)
}
