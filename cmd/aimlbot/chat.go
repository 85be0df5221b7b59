package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aimlkit/aiml"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [aiml-files...]",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the bot.

AIML files given as arguments are loaded first. Type /help inside the
session for in-chat commands.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	bot, err := newBot(args...)
	if err != nil {
		return err
	}
	defer bot.Close()

	out := cmd.OutOrStdout()
	name, _ := bot.BotPredicate("name")
	fmt.Fprintf(out, "%s\n", styled(mutedStyle, "Chatting with "+name+". /quit to leave, /help for commands."))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, styled(promptStyle, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if done := chatCommand(cmd, bot, line); done {
				return nil
			}
			continue
		}

		response, err := bot.Respond(line)
		switch {
		case errors.Is(err, aiml.ErrNoMatch):
			fmt.Fprintln(out, styled(warningStyle, "(no rule matches that)"))
		case errors.Is(err, aiml.ErrRecursionLimit):
			if response != "" {
				fmt.Fprintf(out, "%s %s\n", styled(botStyle, "bot>"), response)
			}
			fmt.Fprintln(out, styled(warningStyle, "(rules recursed too deeply)"))
		case err != nil:
			outputError(cmd.ErrOrStderr(), err)
		default:
			fmt.Fprintf(out, "%s %s\n", styled(botStyle, "bot>"), response)
		}
	}
}

// chatCommand handles in-session slash commands. Returns true to exit.
func chatCommand(cmd *cobra.Command, bot *aiml.Bot, line string) bool {
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(out, styled(mutedStyle, `/quit           leave the session
/reset          clear predicates, history and topic
/save [path]    save the brain file
/load [path]    restore a brain file
/stats          show database and session stats
/topic          show the current topic`))
	case "/reset":
		bot.Reset()
		fmt.Fprintln(out, styled(successStyle, "session reset"))
	case "/save":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		if err := bot.SaveBrain(path); err != nil {
			outputError(cmd.ErrOrStderr(), err)
		} else {
			fmt.Fprintln(out, styled(successStyle, "brain saved"))
		}
	case "/load":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		if err := bot.LoadBrain(path); err != nil {
			outputError(cmd.ErrOrStderr(), err)
		} else {
			fmt.Fprintln(out, styled(successStyle, "brain loaded"))
		}
	case "/stats":
		stats, err := bot.Stats()
		if err != nil {
			outputError(cmd.ErrOrStderr(), err)
		} else {
			outputStats(cmd, stats)
		}
	case "/topic":
		topic := bot.CurrentTopic()
		if topic == "" {
			topic = "(default)"
		}
		fmt.Fprintln(out, styled(mutedStyle, "topic: "+topic))
	default:
		fmt.Fprintln(os.Stderr, styled(warningStyle, "unknown command "+fields[0]))
	}
	return false
}
