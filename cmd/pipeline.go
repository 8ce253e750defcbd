package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"postmatch/internal/models"
	"postmatch/internal/services"
)

var (
	postAmount     int
	fonciiUsername string
	stopAtCode     string
	newUser        bool
	showRows       bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <instagram-username>",
	Short: "Fetch, match and upload an account's posts",
	Long: `Fetches the account's most recent posts, matches each one to the food venues
it is about and uploads the matched posts to the Foncii map of --foncii-username
(defaults to the Instagram username). With --new-user the Foncii user is created
from the Instagram profile first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], true)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <instagram-username>",
	Short: "Upload an account's posts without matching them to places",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0], false)
	},
}

var ingestUserCmd = &cobra.Command{
	Use:   "ingest-user <instagram-username>",
	Short: "Create a Foncii user from an Instagram profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := appInstance.RequirePipeline(); err != nil {
			return err
		}

		profile, err := appInstance.UserService.IngestNewUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s user %s (%s)\n", color.GreenString("Ingested"), profile.Username, profile.FullName)
		return nil
	},
}

func runPipeline(cmd *cobra.Command, username string, classify bool) error {
	appInstance, err := GetAppFromContext(cmd.Context())
	if err != nil {
		return err
	}
	if err := appInstance.RequirePipeline(); err != nil {
		return err
	}

	p := services.RunParams{
		InstagramUsername: username,
		FonciiUsername:    fonciiUsername,
		PostAmount:        postAmount,
		StopAtCode:        stopAtCode,
	}
	ctx := cmd.Context()

	var res *services.RunResult
	switch {
	case classify && newUser:
		res, err = appInstance.UserService.NewUserClassifyIngest(ctx, p)
	case classify:
		res, err = appInstance.PipelineService.ClassifyAndIngest(ctx, p)
	case newUser:
		res, err = appInstance.UserService.NewUserIngest(ctx, p)
	default:
		res, err = appInstance.PipelineService.Ingest(ctx, p)
	}
	if res != nil {
		printRunResult(res, classify)
	}
	return err
}

func printRunResult(res *services.RunResult, classify bool) {
	fmt.Printf("Run %s: fetched %d posts", res.RunID, res.Fetched)
	if classify {
		fmt.Printf(", %s matched", color.GreenString(strconv.Itoa(res.Accepted)))
	}
	fmt.Printf(", %d batches uploaded\n", res.BatchesUploaded)

	if !showRows || len(res.Rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Post", "Tier", "Place", "Score", "Confidence", "Handle"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range res.Rows {
		for _, m := range row.Accepted {
			table.Append([]string{
				row.PostID,
				string(row.Tier),
				fmt.Sprintf("%s (%s)", m.Name, m.PlaceID),
				fmt.Sprintf("%.2f", m.Score),
				confidenceString(m.Confidence),
				m.Handle,
			})
		}
	}
	table.Render()
}

func confidenceString(c models.Confidence) string {
	switch c {
	case models.ConfidenceHigh:
		return color.GreenString(string(c))
	case models.ConfidenceMedium:
		return color.YellowString(string(c))
	default:
		return strings.TrimSpace(string(c))
	}
}

func init() {
	for _, c := range []*cobra.Command{classifyCmd, ingestCmd} {
		c.Flags().IntVarP(&postAmount, "amount", "n", 30, "Number of posts to fetch")
		c.Flags().StringVar(&fonciiUsername, "foncii-username", "", "Foncii user receiving the posts (default: the Instagram username)")
		c.Flags().StringVar(&stopAtCode, "stop-at", "", "Stop at the post with this shortcode (already ingested)")
		c.Flags().BoolVar(&newUser, "new-user", false, "Create the Foncii user from the Instagram profile first")
	}
	classifyCmd.Flags().BoolVar(&showRows, "show", false, "Print the accepted matches")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ingestUserCmd)
}
