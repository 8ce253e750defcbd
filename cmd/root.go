package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"postmatch/internal/app"
	"postmatch/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "postmatch",
	Short: "Match Instagram posts to food venues and ingest them into Foncii",
	Long: `postmatch fetches an Instagram account's posts, matches each post to the
restaurants, bars and cafes it is about, and uploads the matched posts to the
Foncii ingestion API.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipAppInit(cmd) {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		appInstance, err := app.NewApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a, err := GetAppFromContext(cmd.Context()); err == nil {
			a.Close()
		}
	},
}

// offline commands that never touch the app
func skipAppInit(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "score", "completion":
		return true
	}
	return false
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfigFile(configPath)
	}
	return config.LoadConfig()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

type contextKey string

const appKey contextKey = "app"

func GetAppFromContext(ctx context.Context) (*app.App, error) {
	if ctx == nil {
		return nil, errors.New("application instance not found in context")
	}
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database, handle cache and external service configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}

		ok := color.GreenString("ok")
		failed := false

		fmt.Print("Database... ")
		if err := appInstance.PrimaryStore.Ping(ctx); err != nil {
			fmt.Println(color.RedString("failed: %v", err))
			failed = true
		} else {
			fmt.Println(ok)
		}

		fmt.Printf("Handle cache (%s)... ", appInstance.Config.Cache.Backend)
		if entries, err := appInstance.CacheStore.Load(ctx); err != nil {
			fmt.Println(color.RedString("failed: %v", err))
			failed = true
		} else {
			fmt.Printf("%s (%d handles)\n", ok, len(entries))
		}

		fmt.Print("External services... ")
		if appInstance.ExternalErr != nil {
			fmt.Println(color.YellowString("not configured: %v", appInstance.ExternalErr))
		} else {
			fmt.Printf("%s (foncii endpoint %s)\n", ok, appInstance.Foncii.Endpoint())
		}

		if failed {
			return errors.New("doctor found problems")
		}
		return nil
	},
}
