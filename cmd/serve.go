package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"postmatch/internal/apihandlers"
	"postmatch/internal/app"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion HTTP API",
	Long: `Starts the HTTP API used by the Foncii backend to trigger post ingestion.
Every ingestion endpoint requires the API_KEY header. With server.async set,
pipeline requests are queued for the worker instead of running inline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config
		if cfg.Server.APIKey == "" {
			return errors.New("server.api_key (API_KEY) must be set to run the API server")
		}
		if appInstance.JobClient == nil {
			// inline runs need the external clients
			if err := appInstance.RequirePipeline(); err != nil {
				return err
			}
		}

		addr := cfg.Server.Address
		if serveAddr != "" {
			addr = serveAddr
		}

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := apihandlers.NewRouter(apihandlers.NewAPIHandler(handlerDeps(appInstance)), apihandlers.RouterOptions{
			APIKey:   cfg.Server.APIKey,
			Gatherer: appInstance.Registry,
			Health:   appInstance.PrimaryStore.Ping,
		})

		srv := &http.Server{Addr: addr, Handler: router}
		errCh := make(chan error, 1)
		go func() {
			log.Infof("Starting API server on http://%s (async: %v)", addr, appInstance.JobClient != nil)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to run API server: %w", err)
			}
			return nil
		case <-shutdown:
		}

		log.Info("Shutdown signal received, draining requests...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Info("API server stopped.")
		return nil
	},
}

func handlerDeps(a *app.App) apihandlers.Deps {
	deps := apihandlers.Deps{Runs: a.RunStore, Jobs: a.JobClient}
	if a.PipelineService != nil {
		deps.Pipelines = a.PipelineService
	}
	if a.UserService != nil {
		deps.Users = a.UserService
	}
	return deps
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides server.address (e.g. 0.0.0.0:8080)")
}
