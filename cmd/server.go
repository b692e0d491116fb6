package cmd

import (
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/example/rezzydesk/internal/application/booking"
	"github.com/example/rezzydesk/internal/session"
	"github.com/example/rezzydesk/internal/web"
)

func newServerCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the back-office web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireKeys(); err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.ListenAddr
			}

			a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			deps := web.Deps{
				Client:   a.client,
				Cookies:  session.NewCookieCodec(a.cfg.CookieHashKey, a.cfg.CookieBlockKey),
				Metrics:  a.metrics,
				Gatherer: a.reg,
				Log:      a.log,
			}
			if a.journal != nil {
				deps.Journal = booking.Recorder(a.journal)
			}
			ws, err := web.New(deps)
			if err != nil {
				return err
			}
			return web.Start(ctx, listen, ws.Routes(), a.log)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default LISTEN_ADDR or :8080)")
	return cmd
}
