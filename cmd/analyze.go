package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/model"
)

var analyzeFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single event from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initTriage(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ev, err := readEvent(analyzeFile)
		if err != nil {
			return err
		}

		res, plan, err := env.triageEvent(ctx, ev)
		if err != nil {
			return eris.Wrapf(err, "analyze event %s", ev.ID)
		}

		zap.L().Info("analysis complete",
			zap.String("event_id", ev.ID),
			zap.Int("passes", res.PassCount),
			zap.String("final_tier", string(res.FinalTier)),
			zap.String("stop_reason", string(res.StopReason)),
			zap.Int("auto_steps", len(plan.Steps)),
			zap.Int("review_items", len(plan.Review)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to event JSON file (required)")
	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}

func readEvent(path string) (model.PerceivedEvent, error) {
	var ev model.PerceivedEvent
	data, err := os.ReadFile(path)
	if err != nil {
		return ev, eris.Wrapf(err, "read event file %s", path)
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, eris.Wrap(err, "parse event file")
	}
	if ev.ID == "" {
		return ev, eris.New("event file missing id")
	}
	return ev, nil
}
