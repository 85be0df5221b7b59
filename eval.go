package aiml

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// evaluator walks a template AST depth-first, concatenating literal text and
// tag results while consulting and mutating the session. One evaluator per
// bot; re-match recursion goes back through the bot so depth accounting
// stays in one place.
type evaluator struct {
	session *Session
	rng     *rand.Rand
	now     func() time.Time

	defaultGet string
	warnf      func(format string, args ...any)

	// rematch re-normalizes and re-matches text for <srai>.
	rematch func(input string) (string, error)
	// botPredicate resolves <bot name="..."/> references.
	botPredicate func(name string) (string, bool)
	// size reports the loaded category count for <size/>.
	size func() int
}

// Evaluate produces the response text for a matched template. On error the
// returned string holds the text accumulated before the failure; mutations
// that already completed (set, topic) are kept, not rolled back.
func (e *evaluator) Evaluate(template *Node, w *Wildcards) (string, error) {
	text, err := e.eval(template, w)
	return collapseResponse(text), err
}

func (e *evaluator) eval(n *Node, w *Wildcards) (string, error) {
	switch n.Kind {
	case NodeRoot, NodeListItem:
		return e.evalChildren(n, w)

	case NodeText:
		return n.Text, nil

	case NodeStar:
		return indexOrEmpty(w.Star, n.Index), nil
	case NodeThatStar:
		return indexOrEmpty(w.ThatStar, n.Index), nil
	case NodeTopicStar:
		return indexOrEmpty(w.TopicStar, n.Index), nil

	case NodeGet:
		if v, ok := e.session.Get(n.Name); ok {
			return v, nil
		}
		return e.defaultGet, nil

	case NodeSet:
		value, err := e.evalChildren(n, w)
		if err != nil {
			return value, err
		}
		value = strings.TrimSpace(value)
		e.session.Set(n.Name, value)
		if strings.EqualFold(n.Name, "topic") {
			// Topic mutation is side effect only.
			e.session.SetTopic(value)
			return "", nil
		}
		return value, nil

	case NodeBot:
		if v, ok := e.botPredicate(n.Name); ok {
			return v, nil
		}
		return "", nil

	case NodeCondition:
		return e.evalCondition(n, w)

	case NodeRandom:
		pick := e.rng.Intn(len(n.Children))
		return e.eval(n.Children[pick], w)

	case NodeSrai:
		body, err := e.evalChildren(n, w)
		if err != nil {
			return body, err
		}
		return e.rematch(body)

	case NodeThatRef:
		if v, ok := e.session.Response(n.Index); ok {
			return v, nil
		}
		return e.defaultGet, nil

	case NodeInputRef:
		if v, ok := e.session.Input(n.Index); ok {
			return v, nil
		}
		return e.defaultGet, nil

	case NodeThink:
		// Evaluate for side effects, contribute no text.
		_, err := e.evalChildren(n, w)
		return "", err

	case NodePerson:
		return e.transformChildren(n, w, func(s string) string { return swapWords(s, personSwaps) })
	case NodePerson2:
		return e.transformChildren(n, w, func(s string) string { return swapWords(s, person2Swaps) })
	case NodeGender:
		return e.transformChildren(n, w, func(s string) string { return swapWords(s, genderSwaps) })

	case NodeFormal:
		return e.transformChildren(n, w, formalCase)
	case NodeUppercase:
		return e.transformChildren(n, w, strings.ToUpper)
	case NodeLowercase:
		return e.transformChildren(n, w, strings.ToLower)
	case NodeSentence:
		return e.transformChildren(n, w, sentenceCase)

	case NodeDate:
		return e.now().Format("Monday, January 2, 2006"), nil

	case NodeSize:
		return strconv.Itoa(e.size()), nil

	case NodeUnknown:
		if e.warnf != nil {
			e.warnf("ignoring unknown template tag <%s>", n.Name)
		}
		return "", nil

	default:
		if e.warnf != nil {
			e.warnf("ignoring unhandled template node kind %d", n.Kind)
		}
		return "", nil
	}
}

func (e *evaluator) evalChildren(n *Node, w *Wildcards) (string, error) {
	var sb strings.Builder
	for _, child := range n.Children {
		text, err := e.eval(child, w)
		sb.WriteString(text)
		if err != nil {
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

func (e *evaluator) transformChildren(n *Node, w *Wildcards, f func(string) string) (string, error) {
	text, err := e.evalChildren(n, w)
	if err != nil {
		return text, err
	}
	return f(text), nil
}

// evalCondition handles the three condition forms: the block form with
// name+value attributes, the name-only list form, and the nameless list form
// with per-item name+value. An unmatched condition falls through to a
// valueless default item if present, else contributes empty text.
func (e *evaluator) evalCondition(n *Node, w *Wildcards) (string, error) {
	if n.Name != "" && n.Value != "" {
		if e.conditionHolds(n.Name, n.Value) {
			return e.evalChildren(n, w)
		}
		return "", nil
	}

	for _, li := range n.Children {
		if li.Kind != NodeListItem {
			continue
		}
		name := li.Name
		if name == "" {
			name = n.Name
		}
		switch {
		case name != "" && li.Value != "":
			if e.conditionHolds(name, li.Value) {
				return e.eval(li, w)
			}
		case li.Value == "" && li.Name == "":
			// Default branch.
			return e.eval(li, w)
		}
	}
	return "", nil
}

// conditionHolds compares a predicate against an expected value,
// case-insensitively. The value "*" holds for any non-empty binding.
func (e *evaluator) conditionHolds(name, value string) bool {
	bound, ok := e.session.Get(name)
	if !ok {
		return false
	}
	if value == tokenManyWild {
		return bound != ""
	}
	return strings.EqualFold(bound, value)
}

func indexOrEmpty(spans []string, index int) string {
	if index < 1 || index > len(spans) {
		return ""
	}
	return spans[index-1]
}

// Pronoun swap tables. Keys and replacements are matched token-wise in a
// single pass so reciprocal pairs do not re-swap.
var personSwaps = map[string]string{
	"I": "YOU", "ME": "YOU", "MY": "YOUR", "MINE": "YOURS", "MYSELF": "YOURSELF",
	"YOU": "I", "YOUR": "MY", "YOURS": "MINE", "YOURSELF": "MYSELF",
	"AM": "ARE", "WE": "YOU", "US": "YOU", "OUR": "YOUR", "OURS": "YOURS",
}

var person2Swaps = map[string]string{
	"I": "HE OR SHE", "ME": "HIM OR HER", "MY": "HIS OR HER", "MINE": "HIS OR HERS",
}

var genderSwaps = map[string]string{
	"HE": "SHE", "SHE": "HE", "HIM": "HER", "HER": "HIM",
	"HIS": "HER", "HERS": "HIS", "HIMSELF": "HERSELF", "HERSELF": "HIMSELF",
}

func swapWords(s string, table map[string]string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if repl, ok := table[strings.ToUpper(word)]; ok {
			words[i] = repl
		}
	}
	return strings.Join(words, " ")
}

// formalCase capitalizes the first letter of every word.
func formalCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = capitalize(word)
	}
	return strings.Join(words, " ")
}

// sentenceCase capitalizes the first letter of the string.
func sentenceCase(s string) string {
	trimmed := strings.TrimLeft(s, " ")
	if trimmed == "" {
		return s
	}
	return s[:len(s)-len(trimmed)] + capitalize(trimmed)
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// collapseResponse squeezes repeated spaces introduced by tag boundaries and
// trims the ends.
func collapseResponse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
