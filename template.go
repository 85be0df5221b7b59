package aiml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// NodeKind discriminates template AST nodes. The evaluator does an
// exhaustive case split over this set; new tags extend the enum rather than
// registering handlers.
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeText
	NodeStar
	NodeThatStar
	NodeTopicStar
	NodeGet
	NodeSet
	NodeBot
	NodeCondition
	NodeListItem
	NodeRandom
	NodeSrai
	NodeThatRef
	NodeInputRef
	NodeThink
	NodePerson
	NodePerson2
	NodeGender
	NodeFormal
	NodeUppercase
	NodeLowercase
	NodeSentence
	NodeDate
	NodeSize
	NodeUnknown
)

// Node is one element of a template AST. Literal text and child tags are
// interleaved in Children, in document order. Immutable once parsed.
type Node struct {
	Kind     NodeKind `json:"kind"`
	Text     string   `json:"text,omitempty"`  // NodeText content
	Name     string   `json:"name,omitempty"`  // predicate name, or tag name for NodeUnknown
	Value    string   `json:"value,omitempty"` // condition comparison value
	Index    int      `json:"index,omitempty"` // 1-based star/input/that index
	Index2   int      `json:"index2,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// tagKinds maps template element names to node kinds. Tags absent here are
// unknown; the loader rejects them unless lenient tags are enabled.
var tagKinds = map[string]NodeKind{
	"star":      NodeStar,
	"thatstar":  NodeThatStar,
	"topicstar": NodeTopicStar,
	"get":       NodeGet,
	"set":       NodeSet,
	"bot":       NodeBot,
	"condition": NodeCondition,
	"li":        NodeListItem,
	"random":    NodeRandom,
	"srai":      NodeSrai,
	"that":      NodeThatRef,
	"input":     NodeInputRef,
	"think":     NodeThink,
	"person":    NodePerson,
	"person2":   NodePerson2,
	"gender":    NodeGender,
	"formal":    NodeFormal,
	"uppercase": NodeUppercase,
	"lowercase": NodeLowercase,
	"sentence":  NodeSentence,
	"date":      NodeDate,
	"size":      NodeSize,
}

// ParseTemplate parses the inner markup of a <template> element into an AST
// rooted at a NodeRoot. The lenient flag downgrades unknown tags from a hard
// error to NodeUnknown nodes resolved (to empty text, with a warning) at
// evaluation time.
func ParseTemplate(markup string, lenient bool) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader("<template>" + markup + "</template>"))

	// Consume the synthetic wrapper start element.
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("template markup: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			break
		}
	}

	root := &Node{Kind: NodeRoot}
	if err := parseChildren(dec, root, lenient); err != nil {
		return nil, err
	}
	return root, nil
}

// parseChildren consumes tokens until the enclosing element closes,
// appending parsed children to parent.
func parseChildren(dec *xml.Decoder, parent *Node, lenient bool) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("template markup: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text := string(t)
			if strings.TrimSpace(text) != "" {
				parent.Children = append(parent.Children, &Node{Kind: NodeText, Text: squeezeSpace(text)})
			} else if text != "" && len(parent.Children) > 0 {
				// Whitespace between sibling tags separates their output.
				parent.Children = append(parent.Children, &Node{Kind: NodeText, Text: " "})
			}
		case xml.StartElement:
			child, err := parseElement(dec, t, lenient)
			if err != nil {
				return err
			}
			parent.Children = append(parent.Children, child)
		case xml.EndElement:
			return nil
		}
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement, lenient bool) (*Node, error) {
	name := strings.ToLower(start.Name.Local)

	// <sr/> is shorthand for <srai><star/></srai>.
	if name == "sr" {
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("template markup: %w", err)
		}
		return &Node{Kind: NodeSrai, Children: []*Node{{Kind: NodeStar, Index: 1}}}, nil
	}

	kind, known := tagKinds[name]
	if !known {
		if !lenient {
			return nil, fmt.Errorf("%w: <%s>", ErrUnknownTag, name)
		}
		kind = NodeUnknown
	}

	node := &Node{Kind: kind}
	if kind == NodeUnknown {
		node.Name = name
	}

	for _, attr := range start.Attr {
		switch strings.ToLower(attr.Name.Local) {
		case "name":
			node.Name = attr.Value
		case "value":
			node.Value = attr.Value
		case "index":
			node.Index, node.Index2 = parseIndexAttr(attr.Value)
		}
	}

	// Indexed tags default to the first capture / most recent entry.
	switch kind {
	case NodeStar, NodeThatStar, NodeTopicStar, NodeInputRef, NodeThatRef:
		if node.Index == 0 {
			node.Index = 1
		}
	}

	if err := parseChildren(dec, node, lenient); err != nil {
		return nil, err
	}

	if err := validateNode(node); err != nil {
		return nil, err
	}
	return node, nil
}

// validateNode enforces the structural constraints that are checkable
// statically, so malformed rules fail at load rather than mid-conversation.
func validateNode(node *Node) error {
	switch node.Kind {
	case NodeGet:
		if node.Name == "" {
			return fmt.Errorf("template markup: <get> requires a name attribute")
		}
	case NodeSet:
		if node.Name == "" {
			return fmt.Errorf("template markup: <set> requires a name attribute")
		}
	case NodeBot:
		if node.Name == "" {
			return fmt.Errorf("template markup: <bot> requires a name attribute")
		}
	case NodeRandom:
		node.Children = dropFormattingText(node.Children)
		for _, c := range node.Children {
			if c.Kind != NodeListItem {
				return fmt.Errorf("template markup: <random> may only contain <li> items")
			}
		}
		if len(node.Children) == 0 {
			return fmt.Errorf("template markup: <random> requires at least one <li>")
		}
	case NodeCondition:
		// Block form carries name+value; list form carries <li> children.
		if node.Value == "" {
			node.Children = dropFormattingText(node.Children)
			for _, c := range node.Children {
				if c.Kind != NodeListItem {
					return fmt.Errorf("template markup: list <condition> may only contain <li> items")
				}
			}
		}
	}
	return nil
}

// dropFormattingText removes whitespace-only text children. <random> and
// list <condition> hold <li> items; the whitespace between the items in a
// pretty-printed document is formatting, not output.
func dropFormattingText(children []*Node) []*Node {
	kept := children[:0]
	for _, c := range children {
		if c.Kind == NodeText && strings.TrimSpace(c.Text) == "" {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// parseIndexAttr parses index="2" and the two-dimensional index="1,2" form
// used by <that>.
func parseIndexAttr(v string) (int, int) {
	parts := strings.SplitN(v, ",", 2)
	first, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	second := 0
	if len(parts) == 2 {
		second, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return first, second
}

// squeezeSpace collapses runs of whitespace (including newlines from
// multi-line templates) into single spaces.
func squeezeSpace(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	joined := strings.Join(fields, " ")
	if len(s) > 0 && isSpace(s[0]) {
		joined = " " + joined
	}
	if len(s) > 1 && isSpace(s[len(s)-1]) && joined != " " {
		joined += " "
	}
	return joined
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// RenderTemplate serializes an AST back to canonical template markup. The
// brain store and AIML export persist this form; ParseTemplate of the result
// reproduces the AST.
func RenderTemplate(root *Node) string {
	var sb strings.Builder
	for _, child := range root.Children {
		renderNode(&sb, child)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case NodeText:
		_ = xml.EscapeText(sb, []byte(n.Text))
		return
	case NodeUnknown:
		// Unknown tags render as empty elements; their content was never
		// meaningful to the evaluator.
		fmt.Fprintf(sb, "<%s/>", n.Name)
		return
	}

	name := kindTags[n.Kind]
	if name == "" {
		return
	}

	sb.WriteString("<")
	sb.WriteString(name)
	if n.Name != "" {
		fmt.Fprintf(sb, " name=%q", n.Name)
	}
	if n.Value != "" {
		fmt.Fprintf(sb, " value=%q", n.Value)
	}
	if n.Index2 > 0 {
		fmt.Fprintf(sb, " index=\"%d,%d\"", n.Index, n.Index2)
	} else if n.Index > 1 || (n.Index == 1 && indexedKind(n.Kind)) {
		fmt.Fprintf(sb, " index=\"%d\"", n.Index)
	}

	if len(n.Children) == 0 {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	for _, child := range n.Children {
		renderNode(sb, child)
	}
	fmt.Fprintf(sb, "</%s>", name)
}

func indexedKind(k NodeKind) bool {
	switch k {
	case NodeStar, NodeThatStar, NodeTopicStar, NodeInputRef, NodeThatRef:
		return true
	}
	return false
}

// kindTags is the inverse of tagKinds.
var kindTags = func() map[NodeKind]string {
	m := make(map[NodeKind]string, len(tagKinds))
	for tag, kind := range tagKinds {
		m[kind] = tag
	}
	return m
}()
