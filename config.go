package aiml

import (
	"os"
	"strconv"

	"github.com/aimlkit/aiml/internal/brain"
)

// Config configures a Bot.
type Config struct {
	// Name is the bot's name, exposed as the "name" bot predicate.
	Name string

	// Brain is the brain ID to persist to. If empty, resolved using brain
	// resolution (explicit > AIMLBOT_BRAIN env > "default").
	Brain string

	// BrainPath is the path to the SQLite brain file.
	// If empty, derived from Brain.
	BrainPath string

	// MaxRecursion bounds <srai> re-match depth per utterance.
	// Defaults to DefaultMaxRecursion.
	MaxRecursion int

	// HistoryDepth is how many (input, response) exchanges the session
	// retains. Defaults to DefaultHistoryDepth.
	HistoryDepth int

	// DefaultGet is produced by <get> of an unset predicate and by
	// out-of-range history references. Defaults to the empty string.
	DefaultGet string

	// SubstitutionsPath points to a YAML substitution table applied during
	// normalization (contraction expansion and the like). If empty, the
	// built-in table is used.
	SubstitutionsPath string

	// Seed seeds the random source used by <random>. Zero means a
	// time-derived seed; tests inject a fixed seed for determinism.
	Seed int64

	// Warnf receives evaluation-time warnings (unknown tags and similar).
	// Nil discards them.
	Warnf func(format string, args ...any)

	// Debug enables verbose logging of match and evaluation traces.
	Debug bool

	// DebugLogPath is the path to write debug traces.
	// Defaults to stderr if empty.
	DebugLogPath string
}

// DefaultConfig returns a Config with sensible defaults.
// Brain defaults to "default", and BrainPath is derived from Brain.
func DefaultConfig() Config {
	return Config{
		Name:         "Bot",
		Brain:        "default",
		BrainPath:    brain.DBPath("default"),
		MaxRecursion: DefaultMaxRecursion,
		HistoryDepth: DefaultHistoryDepth,
		DefaultGet:   DefaultGetPlaceholder,
	}
}

// ConfigFromEnv reads configuration from environment variables.
//
//	AIMLBOT_NAME          → Name
//	AIMLBOT_BRAIN         → Brain
//	AIMLBOT_BRAIN_PATH    → BrainPath
//	AIMLBOT_MAX_RECURSION → MaxRecursion
//	AIMLBOT_HISTORY       → HistoryDepth
//	AIMLBOT_SUBSTITUTIONS → SubstitutionsPath
//	AIMLBOT_DEBUG         → Debug (any non-empty value enables)
//	AIMLBOT_DEBUG_LOG     → DebugLogPath
func ConfigFromEnv() Config {
	cfg := Config{
		Name:              os.Getenv("AIMLBOT_NAME"),
		Brain:             os.Getenv("AIMLBOT_BRAIN"),
		BrainPath:         os.Getenv("AIMLBOT_BRAIN_PATH"),
		SubstitutionsPath: os.Getenv("AIMLBOT_SUBSTITUTIONS"),
		Debug:             os.Getenv("AIMLBOT_DEBUG") != "",
		DebugLogPath:      os.Getenv("AIMLBOT_DEBUG_LOG"),
	}
	if v := os.Getenv("AIMLBOT_MAX_RECURSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRecursion = n
		}
	}
	if v := os.Getenv("AIMLBOT_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryDepth = n
		}
	}
	return cfg
}

// Validate checks the configuration for errors.
// Returns *ValidationError for invalid fields.
func (c *Config) Validate() error {
	if c.MaxRecursion < 1 {
		return &ValidationError{Field: "MaxRecursion", Message: "must be at least 1"}
	}
	if c.HistoryDepth < 1 {
		return &ValidationError{Field: "HistoryDepth", Message: "must be at least 1"}
	}
	if c.Brain != "" {
		if err := brain.ValidateID(c.Brain); err != nil {
			return &ValidationError{Field: "Brain", Message: err.Error()}
		}
	}
	return nil
}

// WithDefaults fills in default values for unset fields.
// Brain resolution: explicit Brain field > AIMLBOT_BRAIN env > "default".
// BrainPath is derived from the resolved Brain if not explicitly set.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Brain == "" {
		resolved, err := brain.Resolve("")
		if err == nil {
			c.Brain = resolved
		} else {
			c.Brain = "default"
		}
	}
	if c.BrainPath == "" {
		c.BrainPath = brain.DBPath(c.Brain)
	}
	if c.MaxRecursion == 0 {
		c.MaxRecursion = defaults.MaxRecursion
	}
	if c.HistoryDepth == 0 {
		c.HistoryDepth = defaults.HistoryDepth
	}
	return c
}
