package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ternarybob/confluo/internal/models"
	"github.com/ternarybob/confluo/internal/services/analyst"
	"github.com/ternarybob/confluo/internal/services/screener"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run one screening cycle and print the candidates",
	Long: `Collects the theme universe and the required leader lists, intersects
them and prints the funnel followed by the candidate table.`,
	RunE: runScreen,
}

var screenSort string

func init() {
	screenCmd.Flags().StringVar(&screenSort, "sort", "theme", "Candidate order: theme or rank")
}

func runScreen(cmd *cobra.Command, args []string) error {
	if screenSort != "theme" && screenSort != "rank" {
		return fmt.Errorf("invalid --sort %q (want theme or rank)", screenSort)
	}

	result, err := application.Screen(cmd.Context())
	if err != nil {
		return err
	}
	if screenSort == "rank" {
		screener.SortByRank(result.Candidates)
	}

	printScreen(os.Stdout, result)
	return nil
}

func printScreen(w io.Writer, result *models.ScreenResult) {
	stages := make([]string, 0, len(result.Stages))
	for _, s := range result.Stages {
		stages = append(stages, fmt.Sprintf("%s %d", s.Name, s.Count))
	}
	fmt.Fprintf(w, "Funnel: %s\n\n", strings.Join(stages, " > "))

	if len(result.Candidates) == 0 {
		fmt.Fprintln(w, "No candidates matched every leader list.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Theme", "Name", "Code", "Market", "Price", "Change", "Lists"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, c := range result.Candidates {
		table.Append([]string{
			strconv.Itoa(i + 1),
			c.Theme,
			c.Entry.DisplayName,
			c.Code(),
			c.Entry.Market.Label(),
			analyst.FormatPrice(c.Entry.Price),
			analyst.FormatChange(c.Entry.PercentChange),
			strings.Join(c.MatchedLists, ","),
		})
	}
	table.Render()
}
