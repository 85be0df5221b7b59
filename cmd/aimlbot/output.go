package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aimlkit/aiml"
	"github.com/spf13/cobra"
)

// outputError writes a styled, human-readable error line. Sentinel
// errors from the engine get friendlier phrasing than their raw text.
func outputError(w io.Writer, err error) {
	var msg string
	switch {
	case errors.Is(err, aiml.ErrNoMatch):
		msg = "no rule matched the input"
	case errors.Is(err, aiml.ErrRecursionLimit):
		msg = "response recursion limit reached"
	case errors.Is(err, aiml.ErrBotClosed):
		msg = "bot is closed"
	default:
		msg = err.Error()
	}
	fmt.Fprintln(w, styled(errorStyle, "error: "+msg))
}

func outputAsJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputStats(cmd *cobra.Command, stats *aiml.BotStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d\n", styled(mutedStyle, "Categories:"), stats.Categories)
	fmt.Fprintf(out, "%s %d\n", styled(mutedStyle, "Graph nodes:"), stats.GraphNodes)
	fmt.Fprintf(out, "%s %d\n", styled(mutedStyle, "Predicates:"), stats.Predicates)
	fmt.Fprintf(out, "%s %d\n", styled(mutedStyle, "History:"), stats.HistoryEntries)
	if stats.Topic != "" {
		fmt.Fprintf(out, "%s %s\n", styled(mutedStyle, "Topic:"), stats.Topic)
	}
	if len(stats.Topics) > 0 {
		fmt.Fprintf(out, "%s %s\n", styled(mutedStyle, "Topics:"), strings.Join(stats.Topics, ", "))
	}
}
