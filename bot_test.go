package aiml

import (
	"errors"
	"testing"
)

const greetingRules = `<?xml version="1.0" encoding="UTF-8"?>
<aiml version="1.0">
	<category>
		<pattern>HELLO *</pattern>
		<template>Hi there!</template>
	</category>
	<category>
		<pattern>MY NAME IS *</pattern>
		<template>Nice to meet you, <set name="name"><star/></set>.</template>
	</category>
	<category>
		<pattern>WHO AM I</pattern>
		<template>You are <get name="name"/>.</template>
	</category>
	<category>
		<pattern>HI</pattern>
		<template><srai>HELLO FRIEND</srai></template>
	</category>
</aiml>`

func newTestBot(t *testing.T, rules string) *Bot {
	t.Helper()
	bot, err := New(Config{Name: "Testy", Seed: 1})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { bot.Close() })

	if rules != "" {
		report, err := bot.LoadString(rules)
		if err != nil {
			t.Fatalf("LoadString() failed: %v", err)
		}
		if report.Failed() > 0 {
			t.Fatalf("LoadString() rejected categories: %v", report.ErrorStrings())
		}
	}
	return bot
}

// TestBot_Respond_Basic verifies the full pipeline: normalize, match,
// evaluate.
func TestBot_Respond_Basic(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	got, err := bot.Respond("Hello, bot!")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Hi there!" {
		t.Errorf("Respond() = %q, want %q", got, "Hi there!")
	}
}

// TestBot_Respond_NoMatch verifies unmatched input returns ErrNoMatch when no
// default category exists.
func TestBot_Respond_NoMatch(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	if _, err := bot.Respond("Goodbye"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Respond() error = %v, want ErrNoMatch", err)
	}
}

// TestBot_Respond_PredicateFlow verifies predicates set in one exchange read
// back in a later one.
func TestBot_Respond_PredicateFlow(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	got, err := bot.Respond("My name is Alice")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Nice to meet you, ALICE." {
		t.Errorf("Respond() = %q, want %q", got, "Nice to meet you, ALICE.")
	}

	got, err = bot.Respond("Who am I?")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "You are ALICE." {
		t.Errorf("Respond() = %q, want %q", got, "You are ALICE.")
	}

	if v := bot.GetVariable("name"); v != "ALICE" {
		t.Errorf("GetVariable(name) = %q, want %q", v, "ALICE")
	}
}

// TestBot_Respond_Srai verifies rule redirection through srai.
func TestBot_Respond_Srai(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	got, err := bot.Respond("Hi")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Hi there!" {
		t.Errorf("Respond() = %q, want %q", got, "Hi there!")
	}
}

// TestBot_Respond_RecursionLimit verifies a self-redirecting rule fails with
// ErrRecursionLimit instead of looping forever.
func TestBot_Respond_RecursionLimit(t *testing.T) {
	bot := newTestBot(t, `<aiml>
		<category><pattern>LOOP</pattern><template><srai>LOOP</srai></template></category>
	</aiml>`)

	if _, err := bot.Respond("loop"); !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("Respond() error = %v, want ErrRecursionLimit", err)
	}
}

// TestBot_Respond_RecursionLimitConfigurable verifies MaxRecursion bounds the
// depth; a chain of exactly that depth still succeeds.
func TestBot_Respond_RecursionLimitConfigurable(t *testing.T) {
	bot, err := New(Config{Name: "Testy", MaxRecursion: 3})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer bot.Close()

	_, err = bot.LoadString(`<aiml>
		<category><pattern>A</pattern><template><srai>B</srai></template></category>
		<category><pattern>B</pattern><template><srai>C</srai></template></category>
		<category><pattern>C</pattern><template><srai>D</srai></template></category>
		<category><pattern>D</pattern><template>done</template></category>
	</aiml>`)
	if err != nil {
		t.Fatalf("LoadString() failed: %v", err)
	}

	got, err := bot.Respond("A")
	if err != nil {
		t.Fatalf("Respond() at the limit failed: %v", err)
	}
	if got != "done" {
		t.Errorf("Respond() = %q, want %q", got, "done")
	}

	// One more hop exceeds the limit.
	if _, err := bot.DefineRule(`<category><pattern>Z</pattern><template><srai>A</srai></template></category>`); err != nil {
		t.Fatalf("DefineRule() failed: %v", err)
	}
	if _, err := bot.Respond("Z"); !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("Respond() one past the limit = %v, want ErrRecursionLimit", err)
	}
}

// TestBot_Respond_ThatContext verifies the previous response qualifies which
// category a follow-up matches.
func TestBot_Respond_ThatContext(t *testing.T) {
	bot := newTestBot(t, `<aiml>
		<category><pattern>ASK ME</pattern><template>Do you like cheese</template></category>
		<category><pattern>YES</pattern><that>DO YOU LIKE CHEESE</that><template>Cheese fan noted.</template></category>
		<category><pattern>YES</pattern><template>Yes to what?</template></category>
	</aiml>`)

	if _, err := bot.Respond("Ask me"); err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	got, err := bot.Respond("Yes")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Cheese fan noted." {
		t.Errorf("Respond() = %q, want the that-qualified response", got)
	}

	got, err = bot.Respond("Yes")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Yes to what?" {
		t.Errorf("Respond() = %q, want the unqualified response", got)
	}
}

// TestBot_Respond_TopicFlow verifies templates can move the conversation
// into a topic that then steers matching.
func TestBot_Respond_TopicFlow(t *testing.T) {
	bot := newTestBot(t, `<aiml>
		<category>
			<pattern>LETS TALK FRUIT</pattern>
			<template>Fruit it is.<think><set name="topic">fruit</set></think></template>
		</category>
		<topic name="fruit">
			<category><pattern>TELL ME MORE</pattern><template>Apples and pears.</template></category>
		</topic>
		<category><pattern>TELL ME MORE</pattern><template>About what?</template></category>
	</aiml>`)

	got, err := bot.Respond("Tell me more")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "About what?" {
		t.Errorf("outside topic: Respond() = %q, want %q", got, "About what?")
	}

	if _, err := bot.Respond("Lets talk fruit"); err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if bot.CurrentTopic() != "fruit" {
		t.Fatalf("CurrentTopic() = %q, want %q", bot.CurrentTopic(), "fruit")
	}

	got, err = bot.Respond("Tell me more")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Apples and pears." {
		t.Errorf("inside topic: Respond() = %q, want %q", got, "Apples and pears.")
	}
}

// TestBot_Respond_MultiSentence verifies each sentence matches independently
// and the responses join.
func TestBot_Respond_MultiSentence(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	got, err := bot.Respond("Hello you. My name is Bob.")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	want := "Hi there! Nice to meet you, BOB."
	if got != want {
		t.Errorf("Respond() = %q, want %q", got, want)
	}

	if len(bot.History()) != 1 {
		t.Errorf("History() has %d exchanges, want 1 per Respond call", len(bot.History()))
	}
}

// TestBot_Respond_EmptyInput verifies input that normalizes to nothing is
// rejected.
func TestBot_Respond_EmptyInput(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	if _, err := bot.Respond("?!..."); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Respond() error = %v, want ErrEmptyInput", err)
	}
}

// TestBot_LoadString_BestEffortReport verifies partial loads report per
// category.
func TestBot_LoadString_BestEffortReport(t *testing.T) {
	bot := newTestBot(t, "")

	report, err := bot.LoadString(`<aiml>
		<category><pattern>OK</pattern><template>fine</template></category>
		<category><pattern></pattern><template>bad</template></category>
	</aiml>`)
	if err != nil {
		t.Fatalf("LoadString() failed: %v", err)
	}
	if report.Loaded != 1 {
		t.Errorf("Loaded = %d, want 1", report.Loaded)
	}
	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}
}

// TestBot_DefineRule verifies on-the-fly rule definition, including override
// of an existing pattern.
func TestBot_DefineRule(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	cat, err := bot.DefineRule(`<category><pattern>HELLO *</pattern><template>Howdy!</template></category>`)
	if err != nil {
		t.Fatalf("DefineRule() failed: %v", err)
	}
	if cat.Pattern != "HELLO *" {
		t.Errorf("Pattern = %q, want %q", cat.Pattern, "HELLO *")
	}

	got, err := bot.Respond("Hello again")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Howdy!" {
		t.Errorf("Respond() = %q, want the overriding rule's response", got)
	}

	if _, err := bot.DefineRule(`<category><pattern>X</pattern></category>`); err == nil {
		t.Error("DefineRule() without template succeeded, want error")
	}
}

// TestBot_BotPredicates verifies bot-level predicates resolve in templates.
func TestBot_BotPredicates(t *testing.T) {
	bot := newTestBot(t, `<aiml>
		<category><pattern>WHO ARE YOU</pattern><template>I am <bot name="name"/>, by <bot name="author"/>.</template></category>
	</aiml>`)
	bot.SetBotPredicate("author", "nobody")

	got, err := bot.Respond("Who are you?")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "I am Testy, by nobody." {
		t.Errorf("Respond() = %q, want %q", got, "I am Testy, by nobody.")
	}
}

// TestBot_StateRoundTrip verifies State/SetState snapshots carry the session
// across bot instances.
func TestBot_StateRoundTrip(t *testing.T) {
	bot := newTestBot(t, greetingRules)
	if _, err := bot.Respond("My name is Carol"); err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	snapshot, err := bot.State()
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}

	other := newTestBot(t, greetingRules)
	if err := other.SetState(snapshot); err != nil {
		t.Fatalf("SetState() failed: %v", err)
	}

	got, err := other.Respond("Who am I?")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "You are CAROL." {
		t.Errorf("Respond() after restore = %q, want %q", got, "You are CAROL.")
	}
}

// TestBot_Reset verifies session reset keeps loaded rules but drops state.
func TestBot_Reset(t *testing.T) {
	bot := newTestBot(t, greetingRules)
	if _, err := bot.Respond("My name is Dave"); err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}

	bot.Reset()

	if len(bot.Predicates()) != 0 {
		t.Errorf("Predicates() after reset = %v, want empty", bot.Predicates())
	}
	if got, _ := bot.Respond("Hello there"); got != "Hi there!" {
		t.Errorf("rules lost after session reset: got %q", got)
	}
}

// TestBot_ResetBrain verifies dropping the rule database.
func TestBot_ResetBrain(t *testing.T) {
	bot := newTestBot(t, greetingRules)
	bot.ResetBrain()

	if _, err := bot.Respond("Hello there"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Respond() after brain reset = %v, want ErrNoMatch", err)
	}
	stats, err := bot.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Categories != 0 {
		t.Errorf("Categories = %d, want 0", stats.Categories)
	}
}

// TestBot_Closed verifies operations on a closed bot fail with ErrBotClosed.
func TestBot_Closed(t *testing.T) {
	bot := newTestBot(t, greetingRules)
	if err := bot.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if _, err := bot.Respond("Hello there"); !errors.Is(err, ErrBotClosed) {
		t.Errorf("Respond() on closed bot = %v, want ErrBotClosed", err)
	}
	if _, err := bot.LoadString(greetingRules); !errors.Is(err, ErrBotClosed) {
		t.Errorf("LoadString() on closed bot = %v, want ErrBotClosed", err)
	}

	// Closing twice is fine.
	if err := bot.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

// TestBot_Stats verifies the stats snapshot reflects the loaded database.
func TestBot_Stats(t *testing.T) {
	bot := newTestBot(t, greetingRules)

	stats, err := bot.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Categories != 4 {
		t.Errorf("Categories = %d, want 4", stats.Categories)
	}
	if stats.GraphNodes == 0 {
		t.Error("GraphNodes = 0, want > 0")
	}
}

// TestBot_Respond_SubstitutionFeedsMatching verifies contraction expansion
// happens before matching.
func TestBot_Respond_SubstitutionFeedsMatching(t *testing.T) {
	bot := newTestBot(t, `<aiml>
		<category><pattern>I AM *</pattern><template>Why are you <star/>?</template></category>
	</aiml>`)

	got, err := bot.Respond("I'm tired")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if got != "Why are you TIRED?" {
		t.Errorf("Respond() = %q, want %q", got, "Why are you TIRED?")
	}
}
