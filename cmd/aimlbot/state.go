package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var predicatesCmd = &cobra.Command{
	Use:   "predicates",
	Short: "List session predicates from the brain file",
	RunE:  runPredicates,
}

func runPredicates(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := bot.LoadBrain(""); err != nil {
		return err
	}

	predicates := bot.Predicates()
	if cfgOutputJSON {
		return outputAsJSON(cmd, predicates)
	}

	if len(predicates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No predicates set.")
		return nil
	}

	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", name, predicates[name])
	}
	return nil
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List topics with loaded categories",
	RunE:  runTopics,
}

func runTopics(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := bot.LoadBrain(""); err != nil {
		return err
	}

	topics := bot.Topics()
	if cfgOutputJSON {
		return outputAsJSON(cmd, topics)
	}

	if len(topics) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No topic-qualified categories loaded.")
		return nil
	}
	for _, topic := range topics {
		fmt.Fprintln(cmd.OutOrStdout(), topic)
	}
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show brain and session statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := bot.LoadBrain(""); err != nil {
		return err
	}

	stats, err := bot.Stats()
	if err != nil {
		return err
	}

	if cfgOutputJSON {
		return outputAsJSON(cmd, stats)
	}
	outputStats(cmd, stats)
	return nil
}
