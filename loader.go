package aiml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Loader parses rule-database documents into categories. Loading is
// best-effort: malformed categories are reported and skipped while the rest
// of the batch loads.
type Loader struct {
	norm    *Normalizer
	lenient bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLenientTags downgrades unknown template tags from load errors to
// evaluation-time warnings.
func WithLenientTags() LoaderOption {
	return func(l *Loader) { l.lenient = true }
}

// NewLoader creates a loader sharing the bot's normalizer, so stored
// patterns and live input normalize identically.
func NewLoader(norm *Normalizer, opts ...LoaderOption) *Loader {
	l := &Loader{norm: norm}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Parse reads an AIML document and returns the categories it defines plus
// per-category parse errors. A syntactically broken document yields the
// categories parsed before the break and one ParseError locating it.
func (l *Loader) Parse(data []byte, source string) ([]*Category, []error) {
	var (
		cats   []*Category
		errs   []error
		topic  string
		inAIML bool
	)

	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, parseErrorAt(data, source, dec.InputOffset(), err))
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "aiml":
				inAIML = true
			case "topic":
				topic = attrValue(t, "name")
			case "category":
				if !inAIML {
					errs = append(errs, parseErrorAt(data, source, dec.InputOffset(),
						errors.New("category outside <aiml> element")))
					if err := dec.Skip(); err != nil {
						return cats, errs
					}
					continue
				}
				offset := dec.InputOffset()
				cat, err := l.parseCategory(dec, topic, source)
				if err != nil {
					errs = append(errs, parseErrorAt(data, source, offset, err))
					continue
				}
				cats = append(cats, cat)
			}
		case xml.EndElement:
			if strings.ToLower(t.Name.Local) == "topic" {
				topic = ""
			}
		}
	}

	return cats, errs
}

// parseCategory consumes one <category> element. The element's own XML
// errors are contained: the decoder is left positioned after the category.
func (l *Loader) parseCategory(dec *xml.Decoder, topic, source string) (*Category, error) {
	var (
		pattern  string
		that     string
		template *Node
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("category markup: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "pattern":
				pattern, err = textContent(dec)
			case "that":
				that, err = textContent(dec)
			case "topic":
				topic, err = textContent(dec)
			case "template":
				template, err = l.parseTemplateElement(dec)
			default:
				err = fmt.Errorf("unexpected <%s> in category", t.Name.Local)
			}
			if err != nil {
				skipCategory(dec)
				return nil, err
			}
		case xml.EndElement:
			if strings.ToLower(t.Name.Local) == "category" {
				return l.buildCategory(pattern, that, topic, template, source)
			}
		}
	}
}

// skipCategory advances the decoder past the closing </category> after a
// category-local error, so leftover content (a stray <topic> element in
// particular) cannot affect categories that follow.
func skipCategory(dec *xml.Decoder) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if end, ok := tok.(xml.EndElement); ok && strings.ToLower(end.Name.Local) == "category" {
			return
		}
	}
}

func (l *Loader) parseTemplateElement(dec *xml.Decoder) (*Node, error) {
	root := &Node{Kind: NodeRoot}
	if err := parseChildren(dec, root, l.lenient); err != nil {
		return nil, err
	}
	return root, nil
}

// buildCategory normalizes the pattern contexts and assembles the immutable
// category. Normalization here must mirror input normalization exactly;
// both go through the one shared Normalizer.
func (l *Loader) buildCategory(pattern, that, topic string, template *Node, source string) (*Category, error) {
	patternTokens := l.norm.Normalize(pattern)
	if len(patternTokens) == 0 {
		return nil, ErrEmptyPattern
	}
	if len(patternTokens) > MaxPatternTokens {
		return nil, fmt.Errorf("%w: %d tokens (max %d)", ErrPatternTooLong, len(patternTokens), MaxPatternTokens)
	}
	if template == nil {
		return nil, errors.New("category has no template")
	}

	return &Category{
		ID:       ulid.Make().String(),
		Pattern:  strings.Join(patternTokens, " "),
		That:     l.norm.NormalizeString(that),
		Topic:    l.norm.NormalizeString(topic),
		Template: template,
		Source:   source,
		Raw:      RenderTemplate(template),
	}, nil
}

// ParseFile loads one AIML file.
func (l *Loader) ParseFile(path string) ([]*Category, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&ParseError{Source: path, Err: err}}
	}
	return l.Parse(data, path)
}

// sraiTextRE rewrites <srai> bodies in text-format rules; they are matched
// against patterns, so they get the same uppercasing patterns do.
var sraiTextRE = regexp.MustCompile(`(?s)<srai>(.+?)</srai>`)

// ParseText compiles the simplified text rule format into categories. Rules
// are blank-line-separated blocks: first line the pattern, an optional
// second line starting with <that>, remaining lines the template. Lines
// starting with # are comments.
func (l *Loader) ParseText(data []byte, source string) ([]*Category, []error) {
	var sb strings.Builder
	sb.WriteString("<aiml>")

	var errs []error
	for _, rule := range splitTextRules(string(data)) {
		if len(rule) < 2 {
			errs = append(errs, &ParseError{
				Source:  source,
				Excerpt: excerpt(strings.Join(rule, " "), 0),
				Err:     errors.New("text rule needs a pattern line and a template"),
			})
			continue
		}

		sb.WriteString("<category><pattern>")
		sb.WriteString(xmlEscape(strings.ToUpper(rule[0])))
		sb.WriteString("</pattern>")

		body := rule[1:]
		if strings.HasPrefix(body[0], "<that>") {
			that := body[0]
			if !strings.HasSuffix(that, "</that>") {
				that += "</that>"
			}
			sb.WriteString(that)
			body = body[1:]
		}

		tpl := strings.Join(body, "\n")
		tpl = sraiTextRE.ReplaceAllStringFunc(tpl, func(m string) string {
			inner := sraiTextRE.FindStringSubmatch(m)[1]
			return "<srai>" + strings.ToUpper(inner) + "</srai>"
		})
		sb.WriteString("<template>")
		sb.WriteString(tpl)
		sb.WriteString("</template></category>")
	}
	sb.WriteString("</aiml>")

	cats, parseErrs := l.Parse([]byte(sb.String()), source)
	return cats, append(errs, parseErrs...)
}

// splitTextRules groups lines into blank-line-separated rule blocks,
// dropping comment lines.
func splitTextRules(text string) [][]string {
	var (
		rules [][]string
		rule  []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			if len(rule) > 0 {
				rules = append(rules, rule)
				rule = nil
			}
			continue
		}
		rule = append(rule, line)
	}
	if len(rule) > 0 {
		rules = append(rules, rule)
	}
	return rules
}

// textContent collects the character data of the current element, rejecting
// nested markup.
func textContent(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			return "", fmt.Errorf("unexpected <%s> in text element", t.Name.Local)
		case xml.EndElement:
			return strings.TrimSpace(sb.String()), nil
		}
	}
}

func attrValue(start xml.StartElement, name string) string {
	for _, attr := range start.Attr {
		if strings.ToLower(attr.Name.Local) == name {
			return attr.Value
		}
	}
	return ""
}

// parseErrorAt builds a ParseError with the line number and a short excerpt
// around the failing byte offset.
func parseErrorAt(data []byte, source string, offset int64, err error) error {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line := 1 + strings.Count(string(data[:offset]), "\n")
	return &ParseError{
		Source:  source,
		Line:    line,
		Excerpt: excerpt(string(data), int(offset)),
		Err:     err,
	}
}

// excerpt returns up to 40 characters around offset, elided at both ends,
// so load errors point at the offending markup.
func excerpt(s string, offset int) string {
	if s == "" {
		return ""
	}
	start := offset - 20
	if start < 0 {
		start = 0
	}
	end := offset + 20
	if end > len(s) {
		end = len(s)
	}
	out := strings.TrimSpace(s[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(s) {
		out += "..."
	}
	return out
}

func xmlEscape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
