package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/rezzydesk/internal/rezzy"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rezzydesk",
		Short:         "Back-office client for the Rezzy reservation service: week agenda, table search and booking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWeekCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newSlotsCmd())
	root.AddCommand(newAvailCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newCancelCmd())
	root.AddCommand(newJournalCmd())
	root.AddCommand(newServerCmd())

	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if rezzy.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "not logged in or session expired; run `rezzydesk login`")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
