package main

import (
	"fmt"
	"os"

	"github.com/aimlkit/aiml"
	"github.com/aimlkit/aiml/mcp"
	"github.com/spf13/cobra"
)

var brainCmd = &cobra.Command{
	Use:   "brain",
	Short: "Inspect or reset the brain file",
}

var brainInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show brain file metadata",
	RunE:  runBrainInfo,
}

var brainResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the session state stored in the brain file",
	RunE:  runBrainReset,
}

func init() {
	brainCmd.AddCommand(brainInfoCmd)
	brainCmd.AddCommand(brainResetCmd)
}

func runBrainInfo(cmd *cobra.Command, args []string) error {
	path := loadConfig().WithDefaults().BrainPath

	store, err := aiml.NewBrainStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	categories, savedAt, err := store.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Brain: %s\n", path)
	fmt.Fprintf(out, "Categories: %d\n", categories)
	if !savedAt.IsZero() {
		fmt.Fprintf(out, "Saved: %s\n", savedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func runBrainReset(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := bot.LoadBrain(""); err != nil {
		return err
	}
	bot.Reset()
	if err := bot.SaveBrain(""); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styled(successStyle, "session state reset"))
	return nil
}

var mcpCmd = &cobra.Command{
	Use:   "mcp [aiml-files...]",
	Short: "Serve the bot over the Model Context Protocol on stdio",
	Long: `Serve the bot's tools over MCP on stdin/stdout, for agent frontends.

The configured brain is restored first; AIML files given as arguments
are loaded on top of it.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	brainPath := loadConfig().WithDefaults().BrainPath
	if err := restoreBrain(bot, brainPath); err != nil {
		logger.Warn("brain restore failed", "path", brainPath, "err", err)
	}

	if len(args) > 0 {
		report, err := bot.LoadFiles(args...)
		if err != nil {
			return err
		}
		reportLoad(report)
	}

	logger.Info("serving MCP on stdio")
	return mcp.NewServer(bot, logger).Run()
}

// restoreBrain loads the brain at path into the bot when the file exists.
// A brain file that does not exist yet just means a fresh bot; any other
// failure is returned so the caller can surface it.
func restoreBrain(bot *aiml.Bot, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return bot.LoadBrain(path)
}
