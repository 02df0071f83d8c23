package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/newstools/docketwatch/internal/courtload"
	"github.com/newstools/docketwatch/internal/model"
	"github.com/newstools/docketwatch/internal/track"
)

var courtsCmd = &cobra.Command{
	Use:   "courts",
	Short: "Manage the court roster",
	Long:  "Commands for loading and inspecting the list of courts the tracker polls.",
}

// -- courts load --

var courtsLoadCmd = &cobra.Command{
	Use:   "load <roster.csv>",
	Short: "Load or refresh the court roster from a CSV file",
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

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open roster file")
		}
		defer f.Close() //nolint:errcheck

		n, err := courtload.Load(ctx, track.NewPostgresStore(pool), f)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Loaded %d courts.\n", n)
		return nil
	},
}

// -- courts list --

var courtsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the court roster",
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

		feedOnly, _ := cmd.Flags().GetBool("feeds")

		courts, err := track.NewPostgresStore(pool).ListCourts(ctx, feedOnly)
		if err != nil {
			return eris.Wrap(err, "courts list")
		}

		if len(courts) == 0 {
			fmt.Fprintln(os.Stderr, "No courts found. Run `docketwatch courts load` first.")
			return nil
		}

		formatCourtsList(os.Stdout, courts)
		return nil
	},
}

func init() {
	courtsListCmd.Flags().Bool("feeds", false, "only courts with a feed")

	courtsCmd.AddCommand(courtsLoadCmd)
	courtsCmd.AddCommand(courtsListCmd)
	rootCmd.AddCommand(courtsCmd)
}

// formatCourtsList writes a tabular roster to w.
func formatCourtsList(out io.Writer, courts []model.Court) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOURT\tFEED\tLAST_UPDATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t------------")

	for _, c := range courts {
		feed := ""
		if c.HasFeed {
			feed = "yes"
		}
		last := ""
		if c.LastUpdated != nil {
			last = c.LastUpdated.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Label(), feed, last)
	}
	_ = w.Flush()
}
