package aiml

import (
	"math/rand"
	"testing"
	"time"
)

func testEvaluator(s *Session) *evaluator {
	return &evaluator{
		session:    s,
		rng:        rand.New(rand.NewSource(1)),
		now:        func() time.Time { return time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC) },
		defaultGet: "",
		rematch: func(input string) (string, error) {
			return "rematched:" + input, nil
		},
		botPredicate: func(name string) (string, bool) {
			if name == "name" {
				return "Testy", true
			}
			return "", false
		},
		size: func() int { return 42 },
	}
}

func evalMarkup(t *testing.T, e *evaluator, markup string, w *Wildcards) string {
	t.Helper()
	root, err := ParseTemplate(markup, false)
	if err != nil {
		t.Fatalf("ParseTemplate(%q) failed: %v", markup, err)
	}
	if w == nil {
		w = &Wildcards{}
	}
	out, err := e.Evaluate(root, w)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", markup, err)
	}
	return out
}

// TestEvaluator_StarIndices verifies wildcard references resolve by 1-based
// index, with out-of-range references contributing empty text.
func TestEvaluator_StarIndices(t *testing.T) {
	e := testEvaluator(NewSession(5))
	w := &Wildcards{Star: []string{"FIRST", "SECOND"}}

	if got := evalMarkup(t, e, `<star/> then <star index="2"/>`, w); got != "FIRST then SECOND" {
		t.Errorf("got %q, want %q", got, "FIRST then SECOND")
	}
	if got := evalMarkup(t, e, `<star index="5"/>end`, w); got != "end" {
		t.Errorf("out-of-range star produced %q, want %q", got, "end")
	}
}

// TestEvaluator_GetSet verifies set binds and echoes, get reads back, and an
// unset get yields the configured placeholder.
func TestEvaluator_GetSet(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)

	if got := evalMarkup(t, e, `<set name="who">Alice</set>`, nil); got != "Alice" {
		t.Errorf("set echoed %q, want %q", got, "Alice")
	}
	if got := evalMarkup(t, e, `<get name="WHO"/>`, nil); got != "Alice" {
		t.Errorf("get = %q, want %q", got, "Alice")
	}
	if got := evalMarkup(t, e, `<get name="missing"/>`, nil); got != "" {
		t.Errorf("unset get = %q, want empty", got)
	}

	e.defaultGet = "unknown"
	if got := evalMarkup(t, e, `<get name="missing"/>`, nil); got != "unknown" {
		t.Errorf("unset get with placeholder = %q, want %q", got, "unknown")
	}
}

// TestEvaluator_SetTopic verifies setting the topic predicate changes the
// session topic as a side effect and contributes no text.
func TestEvaluator_SetTopic(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)

	if got := evalMarkup(t, e, `Okay.<set name="topic">fruit</set>`, nil); got != "Okay." {
		t.Errorf("got %q, want %q", got, "Okay.")
	}
	if s.Topic() != "fruit" {
		t.Errorf("session topic = %q, want %q", s.Topic(), "fruit")
	}
}

// TestEvaluator_BotPredicate verifies bot predicate lookup, with unknown
// names contributing empty text.
func TestEvaluator_BotPredicate(t *testing.T) {
	e := testEvaluator(NewSession(5))

	if got := evalMarkup(t, e, `I am <bot name="name"/>.`, nil); got != "I am Testy." {
		t.Errorf("got %q, want %q", got, "I am Testy.")
	}
	if got := evalMarkup(t, e, `x<bot name="nope"/>y`, nil); got != "xy" {
		t.Errorf("got %q, want %q", got, "xy")
	}
}

// TestEvaluator_Condition_BlockForm verifies the name+value block form.
func TestEvaluator_Condition_BlockForm(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)
	s.Set("mood", "happy")

	if got := evalMarkup(t, e, `<condition name="mood" value="HAPPY">Glad!</condition>`, nil); got != "Glad!" {
		t.Errorf("matching condition = %q, want %q", got, "Glad!")
	}
	if got := evalMarkup(t, e, `<condition name="mood" value="sad">Oh no</condition>`, nil); got != "" {
		t.Errorf("non-matching condition = %q, want empty", got)
	}
	// "*" holds for any non-empty binding.
	if got := evalMarkup(t, e, `<condition name="mood" value="*">Bound</condition>`, nil); got != "Bound" {
		t.Errorf("wildcard condition = %q, want %q", got, "Bound")
	}
	if got := evalMarkup(t, e, `<condition name="unbound" value="*">Bound</condition>`, nil); got != "" {
		t.Errorf("wildcard condition on unbound predicate = %q, want empty", got)
	}
}

// TestEvaluator_Condition_ListForms verifies the name-only list form and the
// per-item form, including the valueless default branch.
func TestEvaluator_Condition_ListForms(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)
	s.Set("mood", "grumpy")

	named := `<condition name="mood"><li value="happy">Yay</li><li value="grumpy">Hmph</li><li>Meh</li></condition>`
	if got := evalMarkup(t, e, named, nil); got != "Hmph" {
		t.Errorf("named list condition = %q, want %q", got, "Hmph")
	}

	s.Set("mood", "unlisted")
	if got := evalMarkup(t, e, named, nil); got != "Meh" {
		t.Errorf("default branch = %q, want %q", got, "Meh")
	}

	perItem := `<condition><li name="mood" value="unlisted">Per-item</li><li>Fallback</li></condition>`
	if got := evalMarkup(t, e, perItem, nil); got != "Per-item" {
		t.Errorf("per-item condition = %q, want %q", got, "Per-item")
	}
}

// TestEvaluator_Random_PicksAListItem verifies random selects one of its
// items, deterministically under a fixed seed.
func TestEvaluator_Random_PicksAListItem(t *testing.T) {
	e := testEvaluator(NewSession(5))
	markup := `<random><li>alpha</li><li>beta</li><li>gamma</li></random>`

	allowed := map[string]bool{"alpha": true, "beta": true, "gamma": true}
	for i := 0; i < 20; i++ {
		got := evalMarkup(t, e, markup, nil)
		if !allowed[got] {
			t.Fatalf("random produced %q, want one of alpha/beta/gamma", got)
		}
	}

	// Two evaluators with the same seed agree on the whole sequence.
	a := testEvaluator(NewSession(5))
	b := testEvaluator(NewSession(5))
	for i := 0; i < 10; i++ {
		if x, y := evalMarkup(t, a, markup, nil), evalMarkup(t, b, markup, nil); x != y {
			t.Fatalf("same-seed evaluators diverged: %q vs %q", x, y)
		}
	}
}

// TestEvaluator_Srai verifies srai evaluates its body first, then re-matches.
func TestEvaluator_Srai(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)
	s.Set("target", "HELLO")

	if got := evalMarkup(t, e, `<srai><get name="target"/></srai>`, nil); got != "rematched:HELLO" {
		t.Errorf("srai = %q, want %q", got, "rematched:HELLO")
	}
}

// TestEvaluator_Think verifies think evaluates for side effects only.
func TestEvaluator_Think(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)

	got := evalMarkup(t, e, `<think><set name="seen">yes</set></think>Noted.`, nil)
	if got != "Noted." {
		t.Errorf("got %q, want %q", got, "Noted.")
	}
	if v, _ := s.Get("seen"); v != "yes" {
		t.Errorf("side effect missing: seen = %q, want %q", v, "yes")
	}
}

// TestEvaluator_HistoryRefs verifies that/input references read the session
// history at 1-based offsets.
func TestEvaluator_HistoryRefs(t *testing.T) {
	s := NewSession(5)
	e := testEvaluator(s)
	s.PushExchange("FIRST INPUT", "first response")
	s.PushExchange("SECOND INPUT", "second response")

	if got := evalMarkup(t, e, `<that/>`, nil); got != "second response" {
		t.Errorf("that = %q, want %q", got, "second response")
	}
	if got := evalMarkup(t, e, `<input index="2"/>`, nil); got != "FIRST INPUT" {
		t.Errorf("input index 2 = %q, want %q", got, "FIRST INPUT")
	}
	if got := evalMarkup(t, e, `<that index="9"/>`, nil); got != "" {
		t.Errorf("out-of-range that = %q, want empty", got)
	}
}

// TestEvaluator_PronounSwaps verifies person, person2 and gender word swaps.
func TestEvaluator_PronounSwaps(t *testing.T) {
	e := testEvaluator(NewSession(5))
	w := &Wildcards{Star: []string{"I LIKE MY HAT"}}

	if got := evalMarkup(t, e, `<person><star/></person>`, w); got != "YOU LIKE YOUR HAT" {
		t.Errorf("person = %q, want %q", got, "YOU LIKE YOUR HAT")
	}

	w = &Wildcards{Star: []string{"SHE GAVE HIM HER BOOK"}}
	if got := evalMarkup(t, e, `<gender><star/></gender>`, w); got != "HE GAVE HER HIM BOOK" {
		t.Errorf("gender = %q, want %q", got, "HE GAVE HER HIM BOOK")
	}

	w = &Wildcards{Star: []string{"I WANT MY TURN"}}
	if got := evalMarkup(t, e, `<person2><star/></person2>`, w); got != "HE OR SHE WANT HIS OR HER TURN" {
		t.Errorf("person2 = %q, want %q", got, "HE OR SHE WANT HIS OR HER TURN")
	}
}

// TestEvaluator_CaseTransforms verifies formal, sentence, uppercase and
// lowercase.
func TestEvaluator_CaseTransforms(t *testing.T) {
	e := testEvaluator(NewSession(5))

	if got := evalMarkup(t, e, `<formal>alice in wonderland</formal>`, nil); got != "Alice In Wonderland" {
		t.Errorf("formal = %q, want %q", got, "Alice In Wonderland")
	}
	if got := evalMarkup(t, e, `<sentence>hello there</sentence>`, nil); got != "Hello there" {
		t.Errorf("sentence = %q, want %q", got, "Hello there")
	}
	if got := evalMarkup(t, e, `<uppercase>quiet</uppercase>`, nil); got != "QUIET" {
		t.Errorf("uppercase = %q, want %q", got, "QUIET")
	}
	if got := evalMarkup(t, e, `<lowercase>LOUD</lowercase>`, nil); got != "loud" {
		t.Errorf("lowercase = %q, want %q", got, "loud")
	}
}

// TestEvaluator_DateAndSize verifies the injected clock and category count.
func TestEvaluator_DateAndSize(t *testing.T) {
	e := testEvaluator(NewSession(5))

	if got := evalMarkup(t, e, `<date/>`, nil); got != "Tuesday, March 5, 2024" {
		t.Errorf("date = %q, want %q", got, "Tuesday, March 5, 2024")
	}
	if got := evalMarkup(t, e, `<size/>`, nil); got != "42" {
		t.Errorf("size = %q, want %q", got, "42")
	}
}

// TestEvaluator_UnknownTag verifies unknown nodes warn and contribute empty
// text.
func TestEvaluator_UnknownTag(t *testing.T) {
	e := testEvaluator(NewSession(5))
	var warned string
	e.warnf = func(format string, args ...any) { warned = format }

	root, err := ParseTemplate(`a<mystery/>b`, true)
	if err != nil {
		t.Fatalf("ParseTemplate() failed: %v", err)
	}
	got, err := e.Evaluate(root, &Wildcards{})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
	if warned == "" {
		t.Error("unknown tag produced no warning")
	}
}

// TestEvaluator_CollapsesWhitespace verifies tag-boundary space runs collapse
// in the final response.
func TestEvaluator_CollapsesWhitespace(t *testing.T) {
	e := testEvaluator(NewSession(5))
	w := &Wildcards{Star: []string{""}}

	if got := evalMarkup(t, e, `You said <star/> just now.`, w); got != "You said just now." {
		t.Errorf("got %q, want %q", got, "You said just now.")
	}
}
