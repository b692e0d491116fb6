package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/rezzydesk/internal/application/agenda"
	"github.com/example/rezzydesk/internal/application/booking"
	"github.com/example/rezzydesk/internal/domain/calendar"
	"github.com/example/rezzydesk/internal/domain/reservation"
)

type queryFlags struct {
	date     string
	time     string
	party    int
	duration int
}

func (f *queryFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.date, "date", "", "reservation date YYYY-MM-DD (default today)")
	c.Flags().StringVar(&f.time, "time", booking.DefaultTime, "start time HH:MM on the 15-minute grid")
	c.Flags().IntVar(&f.party, "party", booking.DefaultPartySize, "party size")
	c.Flags().IntVar(&f.duration, "duration", reservation.DefaultDurationMinutes, "duration in minutes")
}

func (f queryFlags) form(finder reservation.AvailabilityFinder, opts ...booking.FormOption) *booking.Form {
	date := f.date
	if date == "" {
		date = time.Now().Format(reservation.DateFormat)
	}
	form := booking.NewForm(finder, date, opts...)
	form.SetTime(f.time)
	form.SetPartySize(f.party)
	form.SetDuration(f.duration)
	return form
}

func newSlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List the 96 bookable start times of a day",
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range reservation.GenerateSlots() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", s, reservation.FormatSlot(s))
			}
		},
	}
}

func newAvailCmd() *cobra.Command {
	var qf queryFlags
	c := &cobra.Command{
		Use:   "avail",
		Short: "Show the tables and combos that can seat a party",
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

			form := qf.form(a.client, booking.WithFormLogger(a.log), booking.WithFormMetrics(a.metrics))
			if err := form.Search(ctx); err != nil {
				return err
			}
			printOptions(cmd.OutOrStdout(), form)
			return nil
		},
	}
	qf.bind(c)
	return c
}

func newBookCmd() *cobra.Command {
	var (
		qf     queryFlags
		guest  string
		phone  string
		notes  string
		tables string
		pick   int
	)
	c := &cobra.Command{
		Use:   "book",
		Short: "Search availability and book one option atomically",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true, journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			form := qf.form(a.client, booking.WithFormLogger(a.log), booking.WithFormMetrics(a.metrics))
			day, err := calendar.ParseDate(form.Query().Date, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			view := agenda.NewView(a.client, agenda.WithWindow(calendar.NewWindowAt(day)), agenda.WithLogger(a.log))
			svc, err := a.service(ctx, booking.WithRefresher(view))
			if err != nil {
				return err
			}

			form.SetGuestName(guest)
			form.SetPhone(phone)
			form.SetNotes(notes)
			if err := form.Search(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts := form.Options()
			switch {
			case len(opts) == 0:
				return fmt.Errorf("no tables available for %s %s party=%d", qf.date, qf.time, qf.party)
			case tables != "":
				if err := form.Select(parseTableIDs(tables)); err != nil {
					printOptions(out, form)
					return fmt.Errorf("--tables %s: %w", tables, err)
				}
			case pick > 0 && pick <= len(opts):
				if err := form.Select(opts[pick-1]); err != nil {
					return err
				}
			default:
				printOptions(out, form)
				return fmt.Errorf("choose an option with --pick N or --tables ID,ID")
			}

			created, err := form.Submit(ctx, svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "booked id=%d guest=%q date=%s time=%s tables=%q status=%s\n",
				created.ID, created.GuestName, created.Date, reservation.NormalizeTime(created.Time), created.TableLabel(), created.Status)
			fmt.Fprintln(out)
			printSnapshot(out, view.Snapshot())
			return nil
		},
	}
	qf.bind(c)
	c.Flags().StringVar(&guest, "guest", "", "guest name")
	c.Flags().StringVar(&phone, "phone", "", "guest phone (required by the server for parties of 4+)")
	c.Flags().StringVar(&notes, "notes", "", "notes")
	c.Flags().StringVar(&tables, "tables", "", "table ids of the option to book, e.g. 1,2")
	c.Flags().IntVar(&pick, "pick", 0, "book the Nth listed option (1-based)")
	_ = c.MarkFlagRequired("guest")
	return c
}

func newEditCmd() *cobra.Command {
	var (
		guest, phone, notes, date, tm, status string
		party, duration                       int
	)
	c := &cobra.Command{
		Use:   "edit ID",
		Short: "Change guest details, timing or status of a reservation (tables stay as booked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true, journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			var patch reservation.ReservationUpdate
			flags := cmd.Flags()
			if flags.Changed("guest") {
				patch.GuestName = &guest
			}
			if flags.Changed("phone") {
				patch.Phone = &phone
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("date") {
				patch.Date = &date
			}
			if flags.Changed("time") {
				patch.Time = &tm
			}
			if flags.Changed("party") {
				patch.PartySize = &party
			}
			if flags.Changed("duration") {
				patch.DurationMinutes = &duration
			}
			if flags.Changed("status") {
				st, err := reservation.ParseStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &st
			}

			updated, err := svc.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated id=%d guest=%q date=%s time=%s party=%d status=%s\n",
				updated.ID, updated.GuestName, updated.Date, reservation.NormalizeTime(updated.Time), updated.PartySize, updated.Status)
			return nil
		},
	}
	f := c.Flags()
	f.StringVar(&guest, "guest", "", "guest name")
	f.StringVar(&phone, "phone", "", "guest phone")
	f.StringVar(&notes, "notes", "", "notes")
	f.StringVar(&date, "date", "", "date YYYY-MM-DD")
	f.StringVar(&tm, "time", "", "start time HH:MM")
	f.IntVar(&party, "party", 0, "party size")
	f.IntVar(&duration, "duration", 0, "duration in minutes")
	f.StringVar(&status, "status", "", "one of confirmed, seated, completed, cancelled, no_show")
	return c
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a confirmed or seated reservation (the record is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needStore: true, journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			res, err := svc.Cancel(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled id=%d guest=%q status=%s\n", res.ID, res.GuestName, res.Status)
			return nil
		},
	}
}

func printOptions(w io.Writer, form *booking.Form) {
	q := form.Query()
	opts := form.Options()
	if len(opts) == 0 {
		fmt.Fprintf(w, "no tables available for %s %s party=%d duration=%dm\n", q.Date, reservation.FormatSlot(q.Time), q.PartySize, q.DurationMinutes)
		return
	}
	for i, o := range opts {
		fmt.Fprintf(w, "%d) %s kind=%s seats=%d tables=%s\n", i+1, o.Label(), o.Kind, o.Capacity, joinIDs(o.TableIDs))
	}
}

func parseTableIDs(s string) reservation.Option {
	var o reservation.Option
	for _, p := range strings.Split(s, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64); err == nil {
			o.TableIDs = append(o.TableIDs, id)
		}
	}
	return o
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
