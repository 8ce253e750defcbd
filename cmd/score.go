package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"postmatch/internal/models"
	"postmatch/pkg/similarity"
)

var (
	scoreTruncate  bool
	scoreAlgorithm string
)

var scoreCmd = &cobra.Command{
	Use:   "score <declared-name> <candidate-name>",
	Short: "Score how similar a declared venue name is to a places result",
	Example: `  postmatch score "Joe's Pizza" "Joe's Pizza Carmine St"
  postmatch score --truncate "joes" "Joe's Pizza"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score := similarity.New(scoreAlgorithm).Score(args[0], args[1], scoreTruncate)
		label := confidenceString(models.ConfidenceFor(score))
		if label == "" {
			label = "none"
		}
		fmt.Printf("%.4f %s\n", score, label)
		return nil
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreTruncate, "truncate", false, "Compare against the candidate cut to the declared name's length (handle matching)")
	scoreCmd.Flags().StringVar(&scoreAlgorithm, "algorithm", similarity.AlgorithmRatcliffObershelp, "ratcliff or jarowinkler")

	rootCmd.AddCommand(scoreCmd)
}
