package main

import (
	"fmt"
	"io"
	"iter"

	"github.com/ternarybob/banner"

	"github.com/ternarybob/confluo/internal/models"
)

// printStream writes chunks as they arrive. Notices and errors go on their own line.
func printStream(w io.Writer, seq iter.Seq[models.Chunk]) {
	midLine := false
	for chunk := range seq {
		switch chunk.Kind {
		case models.ChunkText:
			fmt.Fprint(w, chunk.Text)
			midLine = true
		case models.ChunkNotice:
			if midLine {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s[%s]%s\n", banner.ColorCyan, chunk.Text, banner.ColorReset)
			midLine = false
		case models.ChunkError:
			if midLine {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s%s%s\n", banner.ColorBold, chunk.Text, banner.ColorReset)
			midLine = false
		}
	}
	if midLine {
		fmt.Fprintln(w)
	}
}
