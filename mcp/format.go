package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aimlkit/aiml"
)

// Formatting helpers shared by the tool handlers.

func formatLoadReport(report *aiml.LoadReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Learned %d categories.", report.Loaded)

	if report.Failed() > 0 {
		fmt.Fprintf(&sb, " %d rejected:\n", report.Failed())
		for _, err := range report.Errors {
			fmt.Fprintf(&sb, "  - %v\n", err)
		}
	}
	return sb.String()
}

func formatCategory(c *aiml.Category) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Defined category [%s]:\n", c.ID)
	fmt.Fprintf(&sb, "  Pattern: %s\n", c.Pattern)
	if c.That != "" {
		fmt.Fprintf(&sb, "  That: %s\n", c.That)
	}
	if c.Topic != "" {
		fmt.Fprintf(&sb, "  Topic: %s\n", c.Topic)
	}
	fmt.Fprintf(&sb, "  Template: %s", truncate(c.Raw, 100))
	return sb.String()
}

func formatStats(stats *aiml.BotStats, predicates map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Categories: %d\n", stats.Categories)
	fmt.Fprintf(&sb, "Graph nodes: %d\n", stats.GraphNodes)
	fmt.Fprintf(&sb, "History entries: %d\n", stats.HistoryEntries)

	topic := stats.Topic
	if topic == "" {
		topic = "(default)"
	}
	fmt.Fprintf(&sb, "Topic: %s\n", topic)

	if len(stats.Topics) > 0 {
		fmt.Fprintf(&sb, "Known topics: %s\n", strings.Join(stats.Topics, ", "))
	}

	if len(predicates) > 0 {
		sb.WriteString("Predicates:\n")
		names := make([]string, 0, len(predicates))
		for name := range predicates {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %s = %q\n", name, predicates[name])
		}
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
