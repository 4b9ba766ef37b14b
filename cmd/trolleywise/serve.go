package main

import (
	"fmt"

	"github.com/spf13/cobra"

	httpDelivery "github.com/trolleywise/backend/internal/delivery/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the gin server exposing /health and POST /api/v1/resolve for
single-name resolution. Referrer chaining is disabled because API requests
arrive concurrently.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	resolver := newResolver(true)
	handler := httpDelivery.NewHandler(resolver)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info().Str("addr", addr).Str("environment", cfg.Server.Environment).
		Msg("server listening")

	return router.Run(addr)
}
