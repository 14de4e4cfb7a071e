package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive screening and analysis session",
	Long: `Screens once, prints the candidates and reads commands:
  <number>   select a candidate and stream its analysis
  /market    stream the market briefing
  /screen    print the last candidate table
  /refresh   clear cached data, reset the conversation and screen again
  /quit      exit
Any other text is a follow-up question about the selected candidate.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := os.Stdout

	result, err := application.Screen(ctx)
	if err != nil {
		return err
	}
	printScreen(out, result)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		prompt(out)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return nil

		case line == "/market":
			printStream(out, application.Brief(ctx))

		case line == "/screen":
			if last := application.Last(); last != nil {
				printScreen(out, last)
			}

		case line == "/refresh":
			if err := application.Refresh(ctx); err != nil {
				fmt.Fprintf(out, "refresh failed: %v\n", err)
				continue
			}
			if result, err = application.Screen(ctx); err != nil {
				return err
			}
			printScreen(out, result)

		default:
			if n, err := strconv.Atoi(line); err == nil {
				c, err := application.SelectIndex(n)
				if err != nil {
					fmt.Fprintln(out, err)
					continue
				}
				fmt.Fprintf(out, "\n## %s (%s) · %s\n\n", c.Entry.DisplayName, c.Code(), c.Theme)
				printStream(out, application.Ask(ctx, ""))
				continue
			}
			printStream(out, application.Ask(ctx, line))
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func prompt(w io.Writer) {
	if c, ok := application.Session.Selected(); ok {
		fmt.Fprintf(w, "\n[%s] > ", c.Entry.DisplayName)
		return
	}
	fmt.Fprint(w, "\n> ")
}
