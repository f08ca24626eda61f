package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/spboyer/evalgate/internal/webapi"
	"github.com/spboyer/evalgate/internal/webserver"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var (
		port           int
		allowedOrigins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard JSON API",
		Long: `Start an HTTP server exposing trends, regression checks, promotion gate
decisions, run details and the audit journal as JSON under /api/.

The API is read-only: promotions and rollbacks are only executed from the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp()
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}

			webapi.Version = version
			srv, err := webserver.New(webserver.Config{
				Port:           port,
				Engine:         a.service(),
				AllowedOrigins: allowedOrigins,
				Logger:         slog.Default(),
			})
			if err != nil {
				return err
			}

			undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
				slog.Debug(fmt.Sprintf(format, args...))
			}))
			if err != nil {
				slog.Warn("could not set GOMAXPROCS from container quota", "error", err)
			}
			defer undo()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: server.port from config)")
	cmd.Flags().StringSliceVar(&allowedOrigins, "allow-origin", nil, "Additional CORS origins (repeatable)")
	return cmd
}
