package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"triage/internal/core"
	"triage/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the triage pipeline over HTTP",
		Long: `Starts an HTTP API:

  GET  /healthz    liveness probe
  POST /v1/triage  {"id": "...", "email": "...", "variants": ["v3"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			return server.New(cfg.Server.Addr, a.aggregator, a.log).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
