package aiml

import (
	"sort"
	"strings"
)

// Wildcard and separator tokens. The separators join the input, that and
// topic segments into one combined token stream; angle brackets cannot
// survive normalization, so they can never collide with real tokens.
const (
	tokenOneWild  = "_" // matches exactly one token
	tokenManyWild = "*" // matches one or more tokens
	tokenThatSep  = "<THAT>"
	tokenTopicSep = "<TOPIC>"

	// emptyContext stands in for an empty that/topic segment so the
	// combined stream always has one token per segment to match against
	// context wildcards.
	emptyContext = "<EMPTY>"
)

// graphNode is one token position in the pattern graph. Literal children
// always outrank wildcard children during lookup; among wildcards the
// one-token kind outranks the one-or-more kind.
type graphNode struct {
	literal  map[string]*graphNode
	one      *graphNode // "_" edge
	many     *graphNode // "*" edge
	category *Category  // non-nil at category leaves
}

// Graph indexes categories by their combined pattern/that/topic token paths.
// Read-mostly after loading: Match is safe to call concurrently, Insert must
// be serialized against in-flight matches by the caller.
type Graph struct {
	root  *graphNode
	nodes int

	// cats tracks loaded categories by combined key for last-load-wins
	// override and ordered iteration.
	cats  map[string]*Category
	order []string
}

// NewGraph creates an empty pattern graph.
func NewGraph() *Graph {
	return &Graph{
		root: &graphNode{},
		cats: make(map[string]*Category),
	}
}

// combine builds the single token stream matched against the graph:
// pattern tokens, that separator, that tokens, topic separator, topic tokens.
func combine(pattern, that, topic []string) []string {
	if len(that) == 0 {
		that = []string{emptyContext}
	}
	if len(topic) == 0 {
		topic = []string{emptyContext}
	}
	stream := make([]string, 0, len(pattern)+len(that)+len(topic)+2)
	stream = append(stream, pattern...)
	stream = append(stream, tokenThatSep)
	stream = append(stream, that...)
	stream = append(stream, tokenTopicSep)
	stream = append(stream, topic...)
	return stream
}

// contextOrWild substitutes the multi-token wildcard for an unspecified
// context, so unqualified categories stay eligible under any that/topic.
func contextOrWild(tokens []string) []string {
	if len(tokens) == 0 {
		return []string{tokenManyWild}
	}
	return tokens
}

// Insert adds a category under its pattern/that/topic token path. An
// existing category at the identical path is overwritten: the most recently
// inserted rule wins.
func (g *Graph) Insert(pattern, that, topic []string, c *Category) error {
	if len(pattern) == 0 {
		return ErrEmptyPattern
	}
	if len(pattern) > MaxPatternTokens {
		return ErrPatternTooLong
	}

	that = contextOrWild(that)
	topic = contextOrWild(topic)
	stream := combine(pattern, that, topic)

	node := g.root
	for _, tok := range stream {
		switch tok {
		case tokenOneWild:
			if node.one == nil {
				node.one = &graphNode{}
				g.nodes++
			}
			node = node.one
		case tokenManyWild:
			if node.many == nil {
				node.many = &graphNode{}
				g.nodes++
			}
			node = node.many
		default:
			if node.literal == nil {
				node.literal = make(map[string]*graphNode)
			}
			child, ok := node.literal[tok]
			if !ok {
				child = &graphNode{}
				node.literal[tok] = child
				g.nodes++
			}
			node = child
		}
	}

	key := strings.Join(stream, " ")
	if _, exists := g.cats[key]; !exists {
		g.order = append(g.order, key)
	}
	g.cats[key] = c
	node.category = c
	return nil
}

// Match finds the highest-priority category for the given token sequences.
// Precedence is evaluated depth-first with backtracking: literal children
// first, then the one-token wildcard, then the one-or-more wildcard tried
// greedily. The first full match under that ordering wins, which yields the
// conventional most-specific-match behavior. Returns ErrNoMatch when no
// path reaches a category.
func (g *Graph) Match(input, that, topic []string) (*Category, *Wildcards, error) {
	if len(input) == 0 {
		return nil, nil, ErrEmptyInput
	}

	stream := combine(input, that, topic)
	caps := &captureState{}
	leaf := matchNode(g.root, stream, 0, caps)
	if leaf == nil || leaf.category == nil {
		return nil, nil, ErrNoMatch
	}
	return leaf.category, caps.wildcards(), nil
}

// captureState accumulates wildcard captures along the current match path.
// Entries are pushed per wildcard edge and popped on backtrack.
type captureState struct {
	segment int // 0 = pattern, 1 = that, 2 = topic
	spans   []capturedSpan
}

type capturedSpan struct {
	segment int
	tokens  []string
}

func (c *captureState) push(segment int, tokens []string) {
	c.spans = append(c.spans, capturedSpan{segment: segment, tokens: tokens})
}

func (c *captureState) pop() {
	c.spans = c.spans[:len(c.spans)-1]
}

func (c *captureState) wildcards() *Wildcards {
	w := &Wildcards{}
	for _, span := range c.spans {
		text := strings.Join(span.tokens, " ")
		if text == emptyContext {
			text = ""
		}
		switch span.segment {
		case 0:
			w.Star = append(w.Star, text)
		case 1:
			w.ThatStar = append(w.ThatStar, text)
		case 2:
			w.TopicStar = append(w.TopicStar, text)
		}
	}
	return w
}

// matchNode walks the graph depth-first from node against stream[i:],
// returning the leaf reached by the first full match in precedence order,
// or nil if the subtree yields no match.
func matchNode(node *graphNode, stream []string, i int, caps *captureState) *graphNode {
	if i == len(stream) {
		if node.category != nil {
			return node
		}
		return nil
	}

	tok := stream[i]

	// Separators are structural: they only ever match literally, and they
	// advance the capture segment.
	if tok == tokenThatSep || tok == tokenTopicSep {
		child := node.literal[tok]
		if child == nil {
			return nil
		}
		caps.segment++
		if leaf := matchNode(child, stream, i+1, caps); leaf != nil {
			return leaf
		}
		caps.segment--
		return nil
	}

	segment := caps.segment

	// 1. Literal child.
	if child := node.literal[tok]; child != nil {
		if leaf := matchNode(child, stream, i+1, caps); leaf != nil {
			return leaf
		}
	}

	// 2. One-token wildcard.
	if node.one != nil {
		caps.push(segment, stream[i:i+1])
		if leaf := matchNode(node.one, stream, i+1, caps); leaf != nil {
			return leaf
		}
		caps.pop()
	}

	// 3. One-or-more wildcard, greedy first, backtracking to shorter
	// spans. It may not consume segment separators.
	if node.many != nil {
		end := i
		for end < len(stream) && stream[end] != tokenThatSep && stream[end] != tokenTopicSep {
			end++
		}
		for j := end; j > i; j-- {
			caps.push(segment, stream[i:j])
			if leaf := matchNode(node.many, stream, j, caps); leaf != nil {
				return leaf
			}
			caps.pop()
		}
	}

	return nil
}

// Count returns the number of loaded categories.
func (g *Graph) Count() int { return len(g.cats) }

// NodeCount returns the number of graph nodes, excluding the root.
func (g *Graph) NodeCount() int { return g.nodes }

// Categories returns all loaded categories in load order.
func (g *Graph) Categories() []*Category {
	out := make([]*Category, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.cats[key])
	}
	return out
}

// Topics returns the distinct non-empty topics with loaded categories,
// sorted.
func (g *Graph) Topics() []string {
	seen := make(map[string]bool)
	for _, c := range g.cats {
		if c.Topic != "" && c.Topic != tokenManyWild {
			seen[c.Topic] = true
		}
	}
	topics := make([]string, 0, len(seen))
	for t := range seen {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Reset drops all categories and nodes.
func (g *Graph) Reset() {
	g.root = &graphNode{}
	g.nodes = 0
	g.cats = make(map[string]*Category)
	g.order = nil
}
