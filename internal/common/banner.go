package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner writes the startup banner and logs the effective settings.
func PrintBanner(w io.Writer, config *Config, logger arbor.ILogger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 56) + banner.ColorReset

	fmt.Fprintf(w, "\n%s\n", hr)
	fmt.Fprintf(w, "%s  CONFLUO  theme x leader momentum screener%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n", hr)

	kvLines := [][2]string{
		{"Version", GetVersion()},
		{"Build", GetBuild()},
		{"Commit", GetGitCommit()},
		{"Environment", config.Environment},
		{"Leaders", strings.Join(config.Screen.Leaders, ", ")},
		{"Model", config.LLM.DefaultModel},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-12s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "%s\n\n", hr)

	logger.Debug().
		Str("version", GetVersion()).
		Str("environment", config.Environment).
		Strs("leaders", config.Screen.Leaders).
		Str("model", config.LLM.DefaultModel).
		Strs("fallbacks", config.LLM.Fallbacks).
		Msg("Application started")
}
