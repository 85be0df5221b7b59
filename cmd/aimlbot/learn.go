package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var learnFormat string

var learnCmd = &cobra.Command{
	Use:   "learn <file...>",
	Short: "Learn rules into the brain file",
	Long: `Learn rule files into the configured brain.

Each file is parsed best-effort: malformed categories are reported and
skipped while the rest load. The resulting database is written to the
brain file, merged over whatever it already contains.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().StringVar(&learnFormat, "format", "aiml", "Rule format: aiml or text")
}

func runLearn(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	// Merge over the existing brain when one exists.
	if _, statErr := os.Stat(loadConfig().WithDefaults().BrainPath); statErr == nil {
		if err := bot.LoadBrain(""); err != nil {
			return err
		}
	}

	switch learnFormat {
	case "aiml":
		report, err := bot.LoadFiles(args...)
		if err != nil {
			return err
		}
		reportLoad(report)
	case "text":
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			report, err := bot.LoadText(string(data))
			if err != nil {
				return err
			}
			reportLoad(report)
		}
	default:
		return fmt.Errorf("unknown format: %s", learnFormat)
	}

	if err := bot.SaveBrain(""); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styled(successStyle, "brain saved"))
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Export the brain as an AIML document",
	Long: `Export the configured brain's rule database as a standalone AIML
document, to stdout or to the given file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	bot, err := newBot()
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := bot.LoadBrain(""); err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return bot.ExportAIML(w)
}
