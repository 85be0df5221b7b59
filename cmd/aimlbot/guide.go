package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const ruleGuide = "# Writing rules\n\n" +
	"aimlbot learns rules in two formats.\n\n" +
	"## AIML\n\n" +
	"Standard AIML 1.0 categories:\n\n" +
	"```xml\n" +
	"<aiml version=\"1.0\">\n" +
	"  <category>\n" +
	"    <pattern>MY NAME IS *</pattern>\n" +
	"    <template>Nice to meet you, <set name=\"name\"><star/></set>.</template>\n" +
	"  </category>\n" +
	"</aiml>\n" +
	"```\n\n" +
	"Patterns are token sequences. `_` matches exactly one word, `*` matches\n" +
	"one or more. Literal words beat `_`, which beats `*`. A category may be\n" +
	"qualified by `<that>` (the bot's previous reply) and `<topic>`.\n\n" +
	"Supported template tags: `star`, `thatstar`, `topicstar`, `get`, `set`,\n" +
	"`bot`, `condition`, `random`, `srai`, `sr`, `that`, `input`, `think`,\n" +
	"`person`, `person2`, `gender`, `formal`, `uppercase`, `lowercase`,\n" +
	"`sentence`, `date`, `size`.\n\n" +
	"## Text rules\n\n" +
	"A lighter format for quick teaching: blank-line separated blocks, the\n" +
	"pattern on the first line and the template after it. `#` starts a\n" +
	"comment line.\n\n" +
	"```\n" +
	"# redirects work through srai\n" +
	"howdy\n" +
	"<srai>hello</srai>\n" +
	"\n" +
	"hello\n" +
	"Hi there!\n" +
	"```\n\n" +
	"Load either format with `aimlbot learn --format aiml|text <file>`.\n"

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the rule-writing guide",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(ruleGuide))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
}
