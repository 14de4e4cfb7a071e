package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <code>",
	Short: "Analyze one screened candidate",
	Long: `Runs a screening cycle, selects the candidate with the given code and
streams the first-turn analysis. Each --ask adds a follow-up question in the
same conversation.`,
	Example: `  confluo analyze 005930
  confluo analyze 005930 --ask "목표가는?" --ask "리스크 요인은?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeQuestions []string

func init() {
	analyzeCmd.Flags().StringArrayVar(&analyzeQuestions, "ask", nil, "Follow-up question (repeatable)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, err := application.Screen(ctx); err != nil {
		return err
	}
	c, err := application.Select(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("## %s (%s) · %s\n\n", c.Entry.DisplayName, c.Code(), c.Theme)
	printStream(os.Stdout, application.Ask(ctx, ""))

	for _, q := range analyzeQuestions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Printf("\n> %s\n\n", q)
		printStream(os.Stdout, application.Ask(ctx, q))
	}
	return nil
}
