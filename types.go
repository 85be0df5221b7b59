package aiml

// Category is a single pattern → template rule, optionally qualified by the
// bot's previous response ("that") and the session topic. Categories are
// immutable once loaded; the pattern graph owns them.
type Category struct {
	ID       string `json:"id"`
	Pattern  string `json:"pattern"`
	That     string `json:"that,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Template *Node  `json:"template"`

	// Source is the file or buffer the category was loaded from.
	Source string `json:"source,omitempty"`
	// Raw holds the original template markup, kept so the brain store and
	// AIML export can round-trip categories without re-serializing the AST.
	Raw string `json:"raw,omitempty"`
}

// Wildcards holds the token spans captured by wildcard edges during a match,
// separated by the context segment they were captured in.
type Wildcards struct {
	Star      []string // pattern-side captures, <star index="1"> is Star[0]
	ThatStar  []string // that-side captures
	TopicStar []string // topic-side captures
}

// Exchange is one (input, response) pair in the session history.
type Exchange struct {
	Input    string `json:"input"`
	Response string `json:"response"`
}

// LoadReport summarizes a batch load. Loading is best-effort: malformed
// categories are skipped and reported here, valid ones still load.
type LoadReport struct {
	Loaded  int     `json:"loaded"`
	Errors  []error `json:"-"`
	Sources int     `json:"sources"`
}

// Failed reports how many categories were rejected.
func (r *LoadReport) Failed() int { return len(r.Errors) }

// ErrorStrings returns the collected errors as strings, for serialization.
func (r *LoadReport) ErrorStrings() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// Merge folds another report into this one.
func (r *LoadReport) Merge(other *LoadReport) {
	if other == nil {
		return
	}
	r.Loaded += other.Loaded
	r.Sources += other.Sources
	r.Errors = append(r.Errors, other.Errors...)
}

// BotStats describes a bot's loaded database and live session.
type BotStats struct {
	Categories     int      `json:"categories"`
	GraphNodes     int      `json:"graph_nodes"`
	Predicates     int      `json:"predicates"`
	HistoryEntries int      `json:"history_entries"`
	Topic          string   `json:"topic"`
	Topics         []string `json:"topics"`
}

// Engine limits.
const (
	// DefaultMaxRecursion bounds <srai> re-match depth per utterance.
	DefaultMaxRecursion = 50

	// DefaultHistoryDepth is how many exchanges the session retains.
	DefaultHistoryDepth = 10

	// DefaultGetPlaceholder is produced by <get> of an unset predicate and
	// by out-of-range history references.
	DefaultGetPlaceholder = ""

	// MaxPatternTokens caps pattern length; longer patterns are rejected
	// at load time as malformed.
	MaxPatternTokens = 256
)
