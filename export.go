package aiml

import (
	"fmt"
	"io"
	"strings"
)

// ExportAIML writes the loaded rule database as a standalone AIML document,
// grouping categories by topic. The output round-trips: loading it into a
// fresh bot reproduces the same categories.
func (b *Bot) ExportAIML(w io.Writer) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	cats := b.graph.Categories()

	// Preserve load order inside each topic group; plain categories first.
	byTopic := make(map[string][]*Category)
	var topicOrder []string
	for _, c := range cats {
		topic := c.Topic
		if topic == tokenManyWild {
			topic = ""
		}
		if _, seen := byTopic[topic]; !seen {
			topicOrder = append(topicOrder, topic)
		}
		byTopic[topic] = append(byTopic[topic], c)
	}

	if _, err := fmt.Fprintln(w, `<?xml version="1.0" encoding="utf-8"?>`); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, `<aiml version="1.0">`); err != nil {
		return err
	}

	for _, topic := range topicOrder {
		indent := ""
		if topic != "" {
			if _, err := fmt.Fprintf(w, "  <topic name=%q>\n", topic); err != nil {
				return err
			}
			indent = "  "
		}
		for _, c := range byTopic[topic] {
			if err := writeCategory(w, c, indent); err != nil {
				return err
			}
		}
		if topic != "" {
			if _, err := fmt.Fprintln(w, "  </topic>"); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w, "</aiml>")
	return err
}

func writeCategory(w io.Writer, c *Category, indent string) error {
	var sb strings.Builder
	sb.WriteString(indent)
	sb.WriteString("  <category>\n")
	fmt.Fprintf(&sb, "%s    <pattern>%s</pattern>\n", indent, xmlEscape(c.Pattern))
	if c.That != "" && c.That != tokenManyWild {
		fmt.Fprintf(&sb, "%s    <that>%s</that>\n", indent, xmlEscape(c.That))
	}
	fmt.Fprintf(&sb, "%s    <template>%s</template>\n", indent, c.Raw)
	sb.WriteString(indent)
	sb.WriteString("  </category>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// LoadReader learns an AIML document from a reader, reporting per-category
// errors in the LoadReport like the other load entry points.
func (b *Bot) LoadReader(r io.Reader, name string) (*LoadReport, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	cats, errs := b.loader.Parse(data, name)
	return b.learn(cats, errs, 1), nil
}
