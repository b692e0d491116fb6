package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rezzydesk/internal/journal"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the audit journal of reservation changes (needs DATABASE_URL)",
	}
	cmd.AddCommand(newJournalListCmd())
	return cmd
}

func newJournalListCmd() *cobra.Command {
	var (
		op            string
		reservationID int64
		username      string
		since         time.Duration
		limit         uint64
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List recent create/update/cancel outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if a.journal == nil {
				return errors.New("DATABASE_URL is not set; the journal is disabled")
			}

			f := journal.Filter{Op: journal.Op(op), ReservationID: reservationID, Username: username, Limit: limit}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}
			entries, err := a.journal.List(ctx, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s op=%s reservation=%d user=%q outcome=%s",
					e.CreatedAt.Local().Format(time.RFC3339), e.Op, e.ReservationID, e.Username, e.Outcome)
				if e.Detail != "" {
					fmt.Fprintf(out, " detail=%q", e.Detail)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	c.Flags().StringVar(&op, "op", "", "only create, update or cancel")
	c.Flags().Int64Var(&reservationID, "reservation", 0, "only this reservation id")
	c.Flags().StringVar(&username, "user", "", "only this user")
	c.Flags().DurationVar(&since, "since", 0, "only entries newer than this, e.g. 24h")
	c.Flags().Uint64Var(&limit, "limit", 50, "maximum entries")
	return c
}
