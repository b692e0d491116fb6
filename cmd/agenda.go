package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rezzydesk/internal/application/agenda"
	"github.com/example/rezzydesk/internal/domain/calendar"
)

type weekFlags struct {
	day   string
	weeks int
}

func (f *weekFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.day, "day", "", "selected day YYYY-MM-DD (default today)")
	c.Flags().IntVar(&f.weeks, "weeks", 0, "shift the visible week by N weeks")
}

func (f weekFlags) window(now time.Time) (calendar.Window, error) {
	w := calendar.NewWindow(now)
	if f.day != "" {
		d, err := calendar.ParseDate(f.day, now.Location())
		if err != nil {
			return w, fmt.Errorf("invalid --day (want YYYY-MM-DD)")
		}
		w = calendar.NewWindowAt(d)
	}
	w.ShiftWeek(f.weeks)
	return w, nil
}

func newWeekCmd() *cobra.Command {
	var wf weekFlags
	c := &cobra.Command{
		Use:   "week",
		Short: "Show the week strip and the reservations of the selected day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.session(ctx); err != nil {
				return err
			}

			win, err := wf.window(time.Now())
			if err != nil {
				return err
			}
			v := agenda.NewView(a.client, agenda.WithWindow(win), agenda.WithLogger(a.log), agenda.WithMetrics(a.metrics))
			if err := v.Refresh(ctx); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), v.Snapshot())
			return nil
		},
	}
	wf.bind(c)
	return c
}

func newWatchCmd() *cobra.Command {
	var wf weekFlags
	c := &cobra.Command{
		Use:   "watch",
		Short: "Keep the agenda on screen, refreshing until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.session(ctx); err != nil {
				return err
			}

			win, err := wf.window(time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var mu sync.Mutex
			var v *agenda.View
			redraw := func() {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprint(out, "\033[H\033[2J")
				printSnapshot(out, v.Snapshot())
			}
			v = agenda.NewView(a.client,
				agenda.WithWindow(win),
				agenda.WithIntervals(a.cfg.NowTick, a.cfg.Refetch),
				agenda.WithLogger(a.log),
				agenda.WithMetrics(a.metrics),
				agenda.OnChange(redraw),
			)
			if err := v.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			v.Stop()
			return nil
		},
	}
	wf.bind(c)
	return c
}

func printSnapshot(w io.Writer, s agenda.Snapshot) {
	for _, d := range s.Days {
		mark := " "
		if d.IsSelected {
			mark = ">"
		}
		today := ""
		if d.IsToday {
			today = " (today)"
		}
		fmt.Fprintf(w, "%s %s %s%s reservations=%d\n", mark, d.Date.Format("Mon"), d.ISODate, today, d.ReservationCount)
	}
	fmt.Fprintf(w, "\n%s\n", s.Selected.Format("Monday, January 2"))
	if s.Err != nil {
		fmt.Fprintf(w, "! %v\n", s.Err)
	}
	if len(s.Entries) == 0 {
		fmt.Fprintln(w, "no reservations")
		return
	}
	for _, e := range s.Entries {
		soon := ""
		if e.StartingSoon {
			soon = " [starting soon]"
		}
		r := e.Reservation
		fmt.Fprintf(w, "id=%d %8s guest=%q party=%d tables=%q status=%s%s\n",
			r.ID, e.Time, r.GuestName, r.PartySize, e.TableLabel, r.Status, soon)
	}
}
