package main

import (
	"os"

	"github.com/aimlkit/aiml"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	cfgBotName    string
	cfgBrain      string
	cfgBrainPath  string
	cfgSubsPath   string
	cfgDebug      bool
	cfgOutputJSON bool

	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "aimlbot",
	})
)

var rootCmd = &cobra.Command{
	Use:   "aimlbot",
	Short: "aimlbot - AIML chatbot engine CLI",
	Long: `aimlbot is a CLI for an embeddable AIML chatbot engine.

It loads rule databases written in AIML (or a simplified text format),
matches utterances against them with wildcard precedence, and keeps
per-session conversational state that can be saved to a brain file.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgBotName, "name", "", "Bot name (default: Bot)")
	rootCmd.PersistentFlags().StringVar(&cfgBrain, "brain", "", "Brain ID to persist to (default: default)")
	rootCmd.PersistentFlags().StringVar(&cfgBrainPath, "brain-path", "", "Path to the brain file (default: derived from brain ID)")
	rootCmd.PersistentFlags().StringVar(&cfgSubsPath, "substitutions", "", "Path to a YAML substitution table")
	rootCmd.PersistentFlags().BoolVar(&cfgDebug, "debug", false, "Enable match/evaluation trace logging")
	rootCmd.PersistentFlags().BoolVar(&cfgOutputJSON, "json", false, "Output JSON where supported")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(defineCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(predicatesCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(brainCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(mcpCmd)
}

// loadConfig assembles the bot configuration from env and flags; flags win.
func loadConfig() aiml.Config {
	cfg := aiml.ConfigFromEnv()

	if cfgBotName != "" {
		cfg.Name = cfgBotName
	}
	if cfgBrain != "" {
		cfg.Brain = cfgBrain
	}
	if cfgBrainPath != "" {
		cfg.BrainPath = cfgBrainPath
	}
	if cfgSubsPath != "" {
		cfg.SubstitutionsPath = cfgSubsPath
	}
	if cfgDebug {
		cfg.Debug = true
	}
	cfg.Warnf = func(format string, args ...any) {
		logger.Warnf(format, args...)
	}
	return cfg
}

// newBot builds a bot from the resolved config, loading any AIML files
// given on the command line.
func newBot(files ...string) (*aiml.Bot, error) {
	bot, err := aiml.New(loadConfig())
	if err != nil {
		return nil, err
	}

	if len(files) > 0 {
		report, err := bot.LoadFiles(files...)
		if err != nil {
			bot.Close()
			return nil, err
		}
		reportLoad(report)
	}
	return bot, nil
}

func reportLoad(report *aiml.LoadReport) {
	logger.Info("loaded rules", "categories", report.Loaded, "rejected", report.Failed())
	for _, err := range report.Errors {
		logger.Warn("rejected category", "err", err)
	}
}
