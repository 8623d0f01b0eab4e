package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/johanlb/scapin-sub003/internal/store"
)

var (
	trailStatus string
	trailEvent  string
	trailLimit  int
)

var trailCmd = &cobra.Command{
	Use:   "trail",
	Short: "Inspect the decision trail",
}

var trailListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.ListAnalyses(ctx, store.Filter{
			Status:  store.AnalysisStatus(trailStatus),
			EventID: trailEvent,
			Limit:   trailLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEVENT\tSTATUS\tPASSES\tSTOP\tCREATED")
		for _, rec := range recs {
			passes, stop := "-", "-"
			if rec.Result != nil {
				passes = fmt.Sprintf("%d", rec.Result.PassCount)
				stop = string(rec.Result.StopReason)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.Event.ID, rec.Status, passes, stop,
				rec.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var trailShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show one analysis with its passes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		passes, err := st.ListPasses(ctx, args[0])
		if err != nil {
			return err
		}

		out := struct {
			Analysis *store.AnalysisRecord `json:"analysis"`
			Passes   []store.PassRecord    `json:"passes"`
		}{rec, passes}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode analysis")
		}
		return nil
	},
}

func init() {
	trailListCmd.Flags().StringVar(&trailStatus, "status", "", "filter by status")
	trailListCmd.Flags().StringVar(&trailEvent, "event", "", "filter by event id")
	trailListCmd.Flags().IntVar(&trailLimit, "limit", 50, "max rows")
	trailCmd.AddCommand(trailListCmd)
	trailCmd.AddCommand(trailShowCmd)
	rootCmd.AddCommand(trailCmd)
}
