package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"postmatch/internal/clix"
	"postmatch/internal/models"
)

var cacheMatchedOnly bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the handle cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached handles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		entries, err := appInstance.CacheStore.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("error loading handle cache: %w", err)
		}

		handles := make([]string, 0, len(entries))
		for h, e := range entries {
			if cacheMatchedOnly && e.PlaceID == "" {
				continue
			}
			handles = append(handles, h)
		}
		if len(handles) == 0 {
			fmt.Println("Handle cache is empty.")
			return nil
		}
		sort.Strings(handles)
		renderCacheTable(handles, entries)
		fmt.Printf("%d of %d handles\n", len(handles), len(entries))
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <handle>...",
	Short: "Show cached entries for handles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		entries, err := appInstance.CacheStore.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("error loading handle cache: %w", err)
		}

		var found []string
		for _, h := range clix.ParseHandles(args) {
			if _, ok := entries[h]; ok {
				found = append(found, h)
				continue
			}
			fmt.Printf("%s %s\n", color.YellowString("Not cached:"), h)
		}
		if len(found) > 0 {
			renderCacheTable(found, entries)
		}
		return nil
	},
}

func renderCacheTable(handles []string, entries map[string]models.HandleCacheEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Handle", "Place", "Place ID", "Score", "Categories"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, h := range handles {
		e := entries[h]
		table.Append([]string{
			h,
			e.Name,
			e.PlaceID,
			fmt.Sprintf("%.2f", e.Score),
			strings.Join(e.Categories, ", "),
		})
	}
	table.Render()
}

func init() {
	cacheListCmd.Flags().BoolVar(&cacheMatchedOnly, "matched", false, "Only show handles that resolved to a place")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}
