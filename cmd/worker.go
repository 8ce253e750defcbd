package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"postmatch/internal/app"
	"postmatch/internal/worker"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background pipeline worker",
	Long:  `Starts the asynq worker that executes pipeline runs queued by the API server.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get application context: %w", err)
		}
		if err := appInstance.RequirePipeline(); err != nil {
			return err
		}

		if err := runWorker(appInstance); err != nil {
			log.Errorf("Worker exited with error: %v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// runWorker initializes and runs the asynq worker server.
func runWorker(appInstance *app.App) error {
	cfg := appInstance.Config

	srv := asynq.NewServer(
		appInstance.RedisOpt(),
		asynq.Config{
			// one run at a time: runs share the handle cache document
			Concurrency: cfg.Worker.Concurrency,
			Queues:      cfg.Worker.Queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				if errors.Is(err, asynq.SkipRetry) {
					log.Warnf("Pipeline task %s failed without retry: %v", task.ResultWriter().TaskID(), err)
					return
				}
				log.Errorf("Asynq task failed: task_id=%s type=%s err=%v",
					task.ResultWriter().TaskID(), task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, worker.PipelineDeps{
		Pipelines: appInstance.PipelineService,
		Users:     appInstance.UserService,
		Runs:      appInstance.RunStore,
	})

	log.Infof("Starting asynq worker (concurrency: %d, queues: %v)...", cfg.Worker.Concurrency, cfg.Worker.Queues)
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Info("Shutdown signal received. Initiating graceful shutdown...")
	srv.Shutdown()
	log.Info("Worker shutdown complete.")
	return nil
}
