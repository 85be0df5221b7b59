package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aimlkit/aiml"
	"github.com/spf13/cobra"
)

var respondCmd = &cobra.Command{
	Use:   "respond <utterance...>",
	Short: "Get a single response",
	Long: `Send one utterance to the bot and print its response.

The configured brain file is loaded first and saved back afterwards, so
predicates and history persist across invocations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRespond,
}

func runRespond(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := bot.LoadBrain(""); err != nil {
		return err
	}

	response, err := bot.Respond(strings.Join(args, " "))
	switch {
	case errors.Is(err, aiml.ErrNoMatch):
		return fmt.Errorf("no rule matches %q", strings.Join(args, " "))
	case errors.Is(err, aiml.ErrRecursionLimit) && response != "":
		logger.Warn("rules recursed too deeply; response is partial")
	case err != nil:
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), response)
	return bot.SaveBrain("")
}

var defineCmd = &cobra.Command{
	Use:   "define <category-xml>",
	Short: "Define a single rule on the fly",
	Long: `Define one rule from <category> XML markup and persist it to the
configured brain.

Example:
  aimlbot define '<category><pattern>HI</pattern><template>Hello!</template></category>'`,
	Args: cobra.ExactArgs(1),
	RunE: runDefine,
}

func runDefine(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	// Best-effort restore so the new rule merges into the existing brain.
	_ = bot.LoadBrain("")

	cat, err := bot.DefineRule(args[0])
	if err != nil {
		return err
	}

	if cfgOutputJSON {
		return outputAsJSON(cmd, cat)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Defined [%s] pattern %q\n", cat.ID, cat.Pattern)
	return bot.SaveBrain("")
}
