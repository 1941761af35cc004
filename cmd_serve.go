package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"houseprice/app"
	qhttp "houseprice/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the model and serve the estimation form",
	RunE:  runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides http.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := app.New(cfg, log)

	// Resources are loaded before listening; a failure here is fatal.
	if _, err := rt.Resources(ctx); err != nil {
		return err
	}

	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = cfg.Http.Port
	if servePort > 0 {
		serverConfig.Port = servePort
	}
	serverConfig.Timeout = cfg.Http.Timeout
	serverConfig.AllowedOrigins = cfg.Http.AllowedOrigins

	if err := qhttp.NewServer(serverConfig, rt, log.Named("http")).Run(ctx); err != nil {
		return err
	}
	log.Info("Exiting")
	return nil
}
