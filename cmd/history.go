package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"postmatch/internal/clix"
	"postmatch/internal/models"
	"postmatch/internal/store"
)

// historyCmd represents the base command for run history operations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View pipeline run history",
	Long:  `Displays past pipeline runs recorded by the CLI, the API server and the worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listHistoryCmd.RunE(cmd, args)
	},
}

var listHistoryCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		page, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return err
		}

		runs, err := appInstance.RunStore.ListRuns(cmd.Context(), page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No pipeline runs found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Mode", "Account", "Fetched", "Accepted", "Batches", "Status", "Started At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, r := range runs {
			table.Append([]string{
				r.ID.String(),
				r.Mode,
				r.InstagramUsername,
				strconv.Itoa(r.Fetched),
				strconv.Itoa(r.Accepted),
				strconv.Itoa(r.BatchesUploaded),
				statusString(r.Status),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

var showHistoryCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one pipeline run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}

		r, err := appInstance.RunStore.GetRun(cmd.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run %s not found", id)
			}
			return err
		}

		fmt.Printf("Run:        %s\n", r.ID)
		fmt.Printf("Mode:       %s\n", r.Mode)
		fmt.Printf("Instagram:  %s\n", r.InstagramUsername)
		fmt.Printf("Foncii:     %s\n", r.FonciiUsername)
		fmt.Printf("Status:     %s\n", statusString(r.Status))
		fmt.Printf("Fetched:    %d\n", r.Fetched)
		fmt.Printf("Accepted:   %d\n", r.Accepted)
		fmt.Printf("Batches:    %d\n", r.BatchesUploaded)
		fmt.Printf("Started:    %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if r.FinishedAt != nil {
			fmt.Printf("Finished:   %s (%s)\n", r.FinishedAt.Local().Format("2006-01-02 15:04:05"), r.FinishedAt.Sub(r.StartedAt).Round(1e6))
		}
		if r.Error != "" {
			fmt.Printf("Error:      %s\n", color.RedString(r.Error))
		}
		return nil
	},
}

func statusString(status string) string {
	switch status {
	case models.RunStatusCompleted:
		return color.GreenString(status)
	case models.RunStatusFailed:
		return color.RedString(status)
	case models.RunStatusRunning:
		return color.CyanString(status)
	default:
		return color.YellowString(status)
	}
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, listHistoryCmd} {
		c.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
		c.Flags().Int("offset", 0, "Number of runs to skip")
	}

	historyCmd.AddCommand(listHistoryCmd)
	historyCmd.AddCommand(showHistoryCmd)
	rootCmd.AddCommand(historyCmd)
}
