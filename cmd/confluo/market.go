package main

import (
	"os"

	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Stream the market briefing",
	Long:  `Summarizes the market from the largest listings, the day's movers among them and market-wide news.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printStream(os.Stdout, application.Brief(cmd.Context()))
		return nil
	},
}
