package aiml

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Normalizer turns raw text into the canonical token form used for both
// stored patterns and incoming utterances. Applying it to each identically
// is what keeps matching correct, so there is exactly one implementation
// and it is pure: uppercase, fold diacritics, apply the substitution table,
// strip punctuation outside wildcard syntax, collapse whitespace.
type Normalizer struct {
	subs []substitution
}

type substitution struct {
	re   *regexp.Regexp
	repl string
}

// DefaultSubstitutions covers common English contractions, in the spirit of
// the tables classic AIML interpreters ship with.
func DefaultSubstitutions() map[string]string {
	return map[string]string{
		"can't":   "can not",
		"won't":   "will not",
		"don't":   "do not",
		"doesn't": "does not",
		"didn't":  "did not",
		"isn't":   "is not",
		"aren't":  "are not",
		"wasn't":  "was not",
		"weren't": "were not",
		"haven't": "have not",
		"hasn't":  "has not",
		"i'm":     "i am",
		"i've":    "i have",
		"i'll":    "i will",
		"i'd":     "i would",
		"you're":  "you are",
		"you've":  "you have",
		"you'll":  "you will",
		"he's":    "he is",
		"she's":   "she is",
		"it's":    "it is",
		"that's":  "that is",
		"there's": "there is",
		"what's":  "what is",
		"who's":   "who is",
		"we're":   "we are",
		"we've":   "we have",
		"they're": "they are",
		"they've": "they have",
		"wanna":   "want to",
		"gonna":   "going to",
	}
}

// NewNormalizer builds a normalizer with the given substitution table.
// A nil table means DefaultSubstitutions. Longer keys are applied first so
// overlapping entries behave predictably.
func NewNormalizer(subs map[string]string) *Normalizer {
	if subs == nil {
		subs = DefaultSubstitutions()
	}

	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	n := &Normalizer{}
	for _, k := range keys {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(k) + `\b`)
		if err != nil {
			continue
		}
		n.subs = append(n.subs, substitution{re: re, repl: subs[k]})
	}
	return n
}

// LoadSubstitutions reads a substitution table from a YAML file mapping
// source phrase to replacement.
func LoadSubstitutions(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read substitutions: %w", err)
	}
	var subs map[string]string
	if err := yaml.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("parse substitutions: %w", err)
	}
	return subs, nil
}

// Normalize converts text into its canonical token sequence. It is
// idempotent: Normalize(strings.Join(Normalize(x), " ")) equals Normalize(x).
func (n *Normalizer) Normalize(text string) []string {
	s := foldDiacritics(text)
	for _, sub := range n.subs {
		s = sub.re.ReplaceAllString(s, sub.repl)
	}
	s = strings.ToUpper(s)
	s = stripPunctuation(s)
	return strings.Fields(s)
}

// NormalizeString is Normalize with the tokens rejoined, for callers that
// want the canonical sentence form.
func (n *Normalizer) NormalizeString(text string) string {
	return strings.Join(n.Normalize(text), " ")
}

// foldDiacritics maps accented characters to their closest ASCII-ish
// equivalent by NFKD decomposition with combining marks removed.
func foldDiacritics(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripPunctuation removes everything that is not a letter, digit, space or
// part of recognized wildcard syntax (* and _).
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '*' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// sentenceSplitRE splits multi-sentence input so each sentence is matched
// independently.
var sentenceSplitRE = regexp.MustCompile(`[.!?]+`)

// SplitSentences splits raw input on sentence-ending punctuation, dropping
// empty fragments.
func SplitSentences(text string) []string {
	parts := sentenceSplitRE.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
