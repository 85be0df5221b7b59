package aiml

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Bot is the embeddable chatbot engine: a loaded rule database, a pattern
// graph over it, and one conversational session. The surrounding layer is
// responsible for serializing load and converse calls against one instance;
// within a call, one utterance is fully matched and evaluated before the
// next is accepted.
type Bot struct {
	config  Config
	norm    *Normalizer
	loader  *Loader
	graph   *Graph
	session *Session
	eval    *evaluator
	debug   *DebugLogger

	mu            sync.Mutex
	botPredicates map[string]string
	closed        bool
}

// New creates a bot from the given configuration.
func New(cfg Config) (*Bot, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	subs := DefaultSubstitutions()
	if cfg.SubstitutionsPath != "" {
		loaded, err := LoadSubstitutions(cfg.SubstitutionsPath)
		if err != nil {
			return nil, fmt.Errorf("bot: %w", err)
		}
		subs = loaded
	}

	debug, err := NewDebugLogger(cfg.Debug, cfg.DebugLogPath)
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	norm := NewNormalizer(subs)
	b := &Bot{
		config:  cfg,
		norm:    norm,
		loader:  NewLoader(norm),
		graph:   NewGraph(),
		session: NewSession(cfg.HistoryDepth),
		debug:   debug,
		botPredicates: map[string]string{
			"name": cfg.Name,
		},
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	b.eval = &evaluator{
		session:      b.session,
		rng:          rand.New(rand.NewSource(seed)),
		now:          time.Now,
		defaultGet:   cfg.DefaultGet,
		warnf:        cfg.Warnf,
		rematch:      b.rematch,
		botPredicate: b.BotPredicate,
		size:         b.graph.Count,
	}

	return b, nil
}

// Normalizer exposes the bot's shared normalizer.
func (b *Bot) Normalizer() *Normalizer { return b.norm }

// LoadString learns the AIML document in the buffer. Malformed categories
// are skipped and reported in the returned LoadReport.
func (b *Bot) LoadString(document string) (*LoadReport, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	cats, errs := b.loader.Parse([]byte(document), "buffer")
	return b.learn(cats, errs, 1), nil
}

// LoadText learns rules written in the simplified text format: blank-line
// separated blocks of pattern line, optional <that> line, template lines.
func (b *Bot) LoadText(text string) (*LoadReport, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	cats, errs := b.loader.ParseText([]byte(text), "buffer")
	return b.learn(cats, errs, 1), nil
}

// LoadFiles learns a batch of AIML files. Loading is best-effort across the
// batch: a failing file or category is reported, the rest still load.
func (b *Bot) LoadFiles(paths ...string) (*LoadReport, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	report := &LoadReport{}
	for _, path := range paths {
		cats, errs := b.loader.ParseFile(path)
		report.Merge(b.learn(cats, errs, 1))
	}
	return report, nil
}

// learn inserts parsed categories into the pattern graph.
func (b *Bot) learn(cats []*Category, errs []error, sources int) *LoadReport {
	report := &LoadReport{Errors: errs, Sources: sources}
	for _, c := range cats {
		if err := b.insert(c); err != nil {
			report.Errors = append(report.Errors, &ParseError{Source: c.Source, Err: err})
			continue
		}
		report.Loaded++
	}
	return report
}

func (b *Bot) insert(c *Category) error {
	return b.graph.Insert(
		strings.Fields(c.Pattern),
		strings.Fields(c.That),
		strings.Fields(c.Topic),
		c,
	)
}

// DefineRule learns a single category from its XML markup, for on-the-fly
// rule definition.
func (b *Bot) DefineRule(categoryXML string) (*Category, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	cats, errs := b.loader.Parse([]byte("<aiml>"+categoryXML+"</aiml>"), "define")
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if len(cats) != 1 {
		return nil, &ParseError{Source: "define", Err: errors.New("expected exactly one category")}
	}
	if err := b.insert(cats[0]); err != nil {
		return nil, &ParseError{Source: "define", Err: err}
	}
	return cats[0], nil
}

// Respond produces the bot's reply to an utterance. Multi-sentence input is
// split and each sentence matched independently; the responses are joined.
// Returns ErrNoMatch when no category (and no bare "*" default) matches.
//
// On evaluation failure the partial response accumulated so far is returned
// alongside the error. Mutations that completed before the failure (set
// predicates, topic changes) persist; nothing is rolled back.
func (b *Bot) Respond(input string) (string, error) {
	if err := b.checkOpen(); err != nil {
		return "", err
	}

	sentences := SplitSentences(input)
	if len(sentences) == 0 {
		sentences = []string{input}
	}

	b.session.ResetDepth()

	var parts []string
	for _, sentence := range sentences {
		response, err := b.respondSentence(sentence)
		if response != "" {
			parts = append(parts, response)
		}
		if err != nil {
			return strings.Join(parts, " "), err
		}
	}

	response := strings.Join(parts, " ")
	b.session.PushExchange(b.norm.NormalizeString(input), response)
	return response, nil
}

// respondSentence normalizes one sentence, matches it against the graph
// with the session's that/topic context, and evaluates the winning
// template.
func (b *Bot) respondSentence(sentence string) (string, error) {
	tokens := b.norm.Normalize(sentence)
	if len(tokens) == 0 {
		return "", ErrEmptyInput
	}

	var that []string
	if last, ok := b.session.Response(1); ok {
		that = b.norm.Normalize(last)
	}
	topic := b.norm.Normalize(b.session.Topic())

	category, wildcards, err := b.graph.Match(tokens, that, topic)
	if err != nil {
		b.debug.Log("no match for %q (that=%v topic=%v)", tokens, that, topic)
		return "", err
	}
	b.debug.Log("matched %q -> pattern %q", strings.Join(tokens, " "), category.Pattern)

	return b.eval.Evaluate(category.Template, wildcards)
}

// rematch implements <srai>: re-normalize the composed text and run the
// full match cycle again, bounded by the session recursion counter so a
// rule chain that loops fails with ErrRecursionLimit instead of growing the
// stack without bound.
func (b *Bot) rematch(input string) (string, error) {
	depth := b.session.EnterRecursion()
	defer b.session.ExitRecursion()

	if depth > b.config.MaxRecursion {
		b.debug.Log("recursion limit %d exceeded", b.config.MaxRecursion)
		return "", ErrRecursionLimit
	}
	return b.respondSentence(input)
}

// GetVariable returns a session predicate; unset names yield the configured
// default placeholder.
func (b *Bot) GetVariable(name string) string {
	if v, ok := b.session.Get(name); ok {
		return v
	}
	return b.config.DefaultGet
}

// SetVariable binds a session predicate.
func (b *Bot) SetVariable(name, value string) {
	b.session.Set(name, value)
}

// Predicates returns a copy of all session predicate bindings.
func (b *Bot) Predicates() map[string]string {
	return b.session.Predicates()
}

// BotPredicate returns a bot-level predicate such as the bot's name.
func (b *Bot) BotPredicate(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.botPredicates[strings.ToLower(name)]
	return v, ok
}

// SetBotPredicate sets a bot-level predicate.
func (b *Bot) SetBotPredicate(name, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.botPredicates[strings.ToLower(name)] = value
}

// BotPredicates returns a copy of all bot-level predicates.
func (b *Bot) BotPredicates() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.botPredicates))
	for k, v := range b.botPredicates {
		out[k] = v
	}
	return out
}

// State serializes the session to a restartable snapshot.
func (b *Bot) State() ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	return b.session.Snapshot()
}

// SetState restores the session from a State snapshot.
func (b *Bot) SetState(snapshot []byte) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.session.Restore(snapshot)
}

// Reset restores the session to its defaults: empty predicates and history,
// default topic, zero recursion depth. Loaded categories are kept.
func (b *Bot) Reset() {
	b.session.Reset()
}

// ResetBrain drops all loaded categories.
func (b *Bot) ResetBrain() {
	b.graph.Reset()
}

// CurrentTopic returns the session's current topic, empty for the default.
func (b *Bot) CurrentTopic() string {
	return b.session.Topic()
}

// Topics lists the distinct topics with loaded categories.
func (b *Bot) Topics() []string {
	return b.graph.Topics()
}

// Categories returns all loaded categories in load order.
func (b *Bot) Categories() []*Category {
	return b.graph.Categories()
}

// History returns the retained exchanges, oldest first.
func (b *Bot) History() []Exchange {
	return b.session.History()
}

// Stats describes the loaded database and live session.
func (b *Bot) Stats() (*BotStats, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	return &BotStats{
		Categories:     b.graph.Count(),
		GraphNodes:     b.graph.NodeCount(),
		Predicates:     len(b.session.Predicates()),
		HistoryEntries: len(b.session.History()),
		Topic:          b.session.Topic(),
		Topics:         b.graph.Topics(),
	}, nil
}

// SaveBrain persists the full bot state (categories, session, bot
// predicates) to the brain file at path. An empty path uses the configured
// BrainPath.
func (b *Bot) SaveBrain(path string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if path == "" {
		path = b.config.BrainPath
	}

	store, err := NewBrainStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, err := b.session.Snapshot()
	if err != nil {
		return err
	}

	return store.Save(&BrainState{
		Categories:    b.graph.Categories(),
		Session:       snapshot,
		BotPredicates: b.BotPredicates(),
	})
}

// LoadBrain restores the full bot state from the brain file at path,
// replacing loaded categories, session state and bot predicates. An empty
// path uses the configured BrainPath.
func (b *Bot) LoadBrain(path string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if path == "" {
		path = b.config.BrainPath
	}

	store, err := NewBrainStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := store.Load()
	if err != nil {
		return err
	}

	b.graph.Reset()
	for _, c := range state.Categories {
		if err := b.insert(c); err != nil {
			return fmt.Errorf("restore category %s: %w", c.ID, err)
		}
	}
	if len(state.Session) > 0 {
		if err := b.session.Restore(state.Session); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.botPredicates = state.BotPredicates
	if b.botPredicates == nil {
		b.botPredicates = map[string]string{"name": b.config.Name}
	}
	b.mu.Unlock()
	return nil
}

// Close releases the bot. Subsequent operations return ErrBotClosed.
func (b *Bot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.debug.Close()
}

func (b *Bot) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBotClosed
	}
	return nil
}
