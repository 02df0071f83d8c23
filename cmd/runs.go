package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/newstools/docketwatch/internal/track"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ingestion run history",
	Long:  "Commands for listing and viewing past ingestion passes.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent ingestion runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := track.Migrate(ctx, pool); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := track.NewRunLog(pool).ListRecent(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full stats of one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := track.Migrate(ctx, pool); err != nil {
			return err
		}

		runs, err := track.NewRunLog(pool).ListRecent(ctx, 1000)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		for _, r := range runs {
			if fmt.Sprint(r.ID) == args[0] {
				return printJSON(os.Stdout, r)
			}
		}
		return eris.Errorf("run %s not found", args[0])
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []track.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tENTRIES\tBROKEN")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t-------\t------")

	for _, r := range runs {
		dur := ""
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		entries, broken := "", ""
		if r.Stats != nil {
			entries = fmt.Sprint(r.Stats.EntriesCreated)
			broken = fmt.Sprint(r.Stats.CourtsBroken)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			entries,
			broken,
		)
	}
	_ = w.Flush()
}

// printJSON writes v to out as indented JSON.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
