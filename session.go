package aiml

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Session is the per-conversation mutable store: predicate bindings, a
// bounded history of exchanges, the current topic and the recursion depth
// counter. One Session per bot instance; mutated only during evaluation of
// the active utterance.
type Session struct {
	mu         sync.Mutex
	predicates map[string]string // keys lowercased
	history    []Exchange        // most recent last
	capacity   int
	topic      string
	depth      int
}

// sessionSnapshot is the serialized external representation of a Session.
type sessionSnapshot struct {
	Version    int               `json:"version"`
	Predicates map[string]string `json:"predicates"`
	History    []Exchange        `json:"history"`
	Topic      string            `json:"topic"`
	Depth      int               `json:"depth"`
	Capacity   int               `json:"capacity"`
}

const snapshotVersion = 1

// NewSession creates a session retaining up to capacity exchanges.
func NewSession(capacity int) *Session {
	if capacity < 1 {
		capacity = DefaultHistoryDepth
	}
	return &Session{
		predicates: make(map[string]string),
		capacity:   capacity,
	}
}

// Get returns a predicate value. Predicate names are case-insensitive.
func (s *Session) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.predicates[strings.ToLower(name)]
	return v, ok
}

// Set binds a predicate value.
func (s *Session) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.predicates[strings.ToLower(name)] = value
}

// Predicates returns a copy of all bindings.
func (s *Session) Predicates() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.predicates))
	for k, v := range s.predicates {
		out[k] = v
	}
	return out
}

// PredicateNames returns all bound predicate names, sorted.
func (s *Session) PredicateNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.predicates))
	for k := range s.predicates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// PushExchange appends an (input, response) pair, evicting the oldest entry
// once capacity is reached.
func (s *Session) PushExchange(input, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Exchange{Input: input, Response: response})
	if len(s.history) > s.capacity {
		s.history = s.history[len(s.history)-s.capacity:]
	}
}

// Input returns the input at the given offset: 1 is the most recent.
func (s *Session) Input(offset int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.at(offset)
	if !ok {
		return "", false
	}
	return e.Input, true
}

// Response returns the bot response at the given offset: 1 is the most
// recent.
func (s *Session) Response(offset int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.at(offset)
	if !ok {
		return "", false
	}
	return e.Response, true
}

func (s *Session) at(offset int) (Exchange, bool) {
	if offset < 1 || offset > len(s.history) {
		return Exchange{}, false
	}
	return s.history[len(s.history)-offset], true
}

// History returns a copy of the retained exchanges, oldest first.
func (s *Session) History() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Exchange, len(s.history))
	copy(out, s.history)
	return out
}

// Topic returns the current topic. The default topic is the empty string.
func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// SetTopic sets the current topic.
func (s *Session) SetTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
}

// EnterRecursion increments the recursion depth counter and returns the new
// depth. The evaluator compares it against Config.MaxRecursion.
func (s *Session) EnterRecursion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth++
	return s.depth
}

// ExitRecursion decrements the recursion depth counter.
func (s *Session) ExitRecursion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth > 0 {
		s.depth--
	}
}

// Depth returns the current recursion depth.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// ResetDepth clears the recursion counter between utterances.
func (s *Session) ResetDepth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth = 0
}

// Snapshot serializes the full session state. Restore of the result is
// bit-for-bit: predicates, history, topic and recursion counter all
// round-trip exactly.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := sessionSnapshot{
		Version:    snapshotVersion,
		Predicates: s.predicates,
		History:    s.history,
		Topic:      s.topic,
		Depth:      s.depth,
		Capacity:   s.capacity,
	}
	return json.Marshal(snap)
}

// Restore replaces the session state from a Snapshot payload.
func (s *Session) Restore(data []byte) error {
	var snap sessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ErrBadSnapshot
	}
	if snap.Version != snapshotVersion {
		return ErrBadSnapshot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.predicates = snap.Predicates
	if s.predicates == nil {
		s.predicates = make(map[string]string)
	}
	s.history = snap.History
	s.topic = snap.Topic
	s.depth = snap.Depth
	if snap.Capacity > 0 {
		s.capacity = snap.Capacity
	}
	if len(s.history) > s.capacity {
		s.history = s.history[len(s.history)-s.capacity:]
	}
	return nil
}

// Reset restores the default topic and clears predicates, history and the
// recursion counter.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.predicates = make(map[string]string)
	s.history = nil
	s.topic = ""
	s.depth = 0
}
