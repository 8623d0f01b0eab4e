package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johanlb/scapin-sub003/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze a batch of events from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initTriage(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		events, err := readEvents(batchFile)
		if err != nil {
			return err
		}

		return processBatch(ctx, events, batchLimit, cfg.Batch.MaxConcurrentAnalyses, func(ctx context.Context, ev model.PerceivedEvent) (*model.MultiPassResult, *model.ActionPlan, error) {
			return env.triageEvent(ctx, ev)
		})
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to events JSON file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of events to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

func readEvents(path string) ([]model.PerceivedEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read events file %s", path)
	}
	var events []model.PerceivedEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, eris.Wrap(err, "parse events file")
	}
	return events, nil
}

// triageFunc is the callback signature for analyzing one event.
type triageFunc func(ctx context.Context, ev model.PerceivedEvent) (*model.MultiPassResult, *model.ActionPlan, error)

// processBatch applies limit, then analyzes events concurrently. Each
// analysis is independent; an individual failure never aborts the batch.
func processBatch(ctx context.Context, events []model.PerceivedEvent, limit, concurrency int, triage triageFunc) error {
	if len(events) == 0 {
		zap.L().Info("no events to process")
		return nil
	}

	// Apply limit
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("events", len(events)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed, reviewed atomic.Int64

	for _, ev := range events {
		g.Go(func() error {
			log := zap.L().With(zap.String("event_id", ev.ID))

			res, plan, err := triage(gctx, ev)
			if err != nil {
				failed.Add(1)
				log.Error("analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			if len(plan.Review) > 0 {
				reviewed.Add(1)
			}
			log.Info("analysis complete",
				zap.Int("passes", res.PassCount),
				zap.String("stop_reason", string(res.StopReason)),
				zap.Int("auto_steps", len(plan.Steps)),
				zap.Int("review_items", len(plan.Review)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int64("needing_review", reviewed.Load()),
	)
	return nil
}
