// Package mcp exposes a bot over the Model Context Protocol, so agent
// frontends can converse with it and manage its rule database through
// stdio tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aimlkit/aiml"
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with chatbot tools.
type Server struct {
	bot       *aiml.Bot
	mcpServer *server.MCPServer
	logger    *log.Logger
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server with chatbot tools registered.
func NewServer(bot *aiml.Bot, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{bot: bot, logger: logger}

	s.mcpServer = server.NewMCPServer(
		"aimlbot",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
// This is primarily for testing the MCP protocol layer.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "bot_converse", Description: "Send an utterance to the bot and get its response"},
		{Name: "bot_learn", Description: "Learn rules from an AIML document or simplified text rules"},
		{Name: "bot_define", Description: "Define a single rule from category XML"},
		{Name: "bot_get", Description: "Read a session predicate"},
		{Name: "bot_set", Description: "Bind a session predicate"},
		{Name: "bot_state", Description: "Show, save or restore the bot's state"},
		{Name: "bot_reset", Description: "Reset the session or drop the rule database"},
	}
}

// CallTool executes a tool by name with the given arguments.
// This is used for testing and direct invocation.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case "bot_converse":
		return s.handleConverse(ctx, args)
	case "bot_learn":
		return s.handleLearn(ctx, args)
	case "bot_define":
		return s.handleDefine(ctx, args)
	case "bot_get":
		return s.handleGet(ctx, args)
	case "bot_set":
		return s.handleSet(ctx, args)
	case "bot_state":
		return s.handleState(ctx, args)
	case "bot_reset":
		return s.handleReset(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("bot_converse",
		mcp.WithDescription("Send an utterance to the bot and get its natural-language response. The bot keeps conversational state: predicates set by rules, recent exchanges, and the current topic."),
		mcp.WithString("utterance",
			mcp.Description("The text to send to the bot"),
			mcp.Required(),
		),
	), s.mcpHandle(s.handleConverse))

	s.mcpServer.AddTool(mcp.NewTool("bot_learn",
		mcp.WithDescription("Learn rules into the bot's database. Accepts a full AIML document, or simplified text rules (blank-line separated pattern/template blocks)."),
		mcp.WithString("content",
			mcp.Description("The rule source to learn"),
			mcp.Required(),
		),
		mcp.WithString("format",
			mcp.Description("Source format: aiml (default) or text"),
		),
	), s.mcpHandle(s.handleLearn))

	s.mcpServer.AddTool(mcp.NewTool("bot_define",
		mcp.WithDescription("Define a single rule on the fly from <category> XML markup."),
		mcp.WithString("category",
			mcp.Description("The category element, e.g. <category><pattern>HI</pattern><template>Hello!</template></category>"),
			mcp.Required(),
		),
	), s.mcpHandle(s.handleDefine))

	s.mcpServer.AddTool(mcp.NewTool("bot_get",
		mcp.WithDescription("Read a session predicate set during conversation (or via bot_set)."),
		mcp.WithString("name",
			mcp.Description("Predicate name, case-insensitive"),
			mcp.Required(),
		),
	), s.mcpHandle(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("bot_set",
		mcp.WithDescription("Bind a session predicate."),
		mcp.WithString("name",
			mcp.Description("Predicate name, case-insensitive"),
			mcp.Required(),
		),
		mcp.WithString("value",
			mcp.Description("Predicate value"),
			mcp.Required(),
		),
	), s.mcpHandle(s.handleSet))

	s.mcpServer.AddTool(mcp.NewTool("bot_state",
		mcp.WithDescription("Inspect or persist bot state. Actions: show (stats and predicates), save (write the brain file), load (restore the brain file)."),
		mcp.WithString("action",
			mcp.Description("show, save or load (default: show)"),
		),
		mcp.WithString("path",
			mcp.Description("Brain file path (default: configured brain)"),
		),
	), s.mcpHandle(s.handleState))

	s.mcpServer.AddTool(mcp.NewTool("bot_reset",
		mcp.WithDescription("Reset bot state. Scope: session clears predicates/history/topic, brain drops all loaded rules."),
		mcp.WithString("scope",
			mcp.Description("session (default) or brain"),
		),
	), s.mcpHandle(s.handleReset))
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// mcpHandle adapts an internal handler to the mcp-go callback shape.
func (s *Server) mcpHandle(h toolHandler) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
	}
	if r.IsError {
		result.IsError = true
	}
	return result
}

// Internal handlers

func (s *Server) handleConverse(ctx context.Context, args map[string]any) (*ToolResult, error) {
	utterance, ok := args["utterance"].(string)
	if !ok || utterance == "" {
		return &ToolResult{Content: "utterance is required", IsError: true}, nil
	}

	response, err := s.bot.Respond(utterance)
	switch {
	case errors.Is(err, aiml.ErrNoMatch):
		return &ToolResult{Content: "The bot has no rule matching that input.", IsError: true}, nil
	case errors.Is(err, aiml.ErrRecursionLimit):
		s.logger.Warn("recursion limit hit", "utterance", utterance)
		if response == "" {
			return &ToolResult{Content: "The bot's rules recursed too deeply on that input.", IsError: true}, nil
		}
		// Partial response is still a response.
		return &ToolResult{Content: response}, nil
	case err != nil:
		return &ToolResult{Content: fmt.Sprintf("converse failed: %v", err), IsError: true}, nil
	}

	return &ToolResult{Content: response}, nil
}

func (s *Server) handleLearn(ctx context.Context, args map[string]any) (*ToolResult, error) {
	content, ok := args["content"].(string)
	if !ok || content == "" {
		return &ToolResult{Content: "content is required", IsError: true}, nil
	}

	format, _ := args["format"].(string)

	var (
		report *aiml.LoadReport
		err    error
	)
	switch format {
	case "", "aiml":
		report, err = s.bot.LoadString(content)
	case "text":
		report, err = s.bot.LoadText(content)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown format: %s", format), IsError: true}, nil
	}
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("learn failed: %v", err), IsError: true}, nil
	}

	return &ToolResult{Content: formatLoadReport(report)}, nil
}

func (s *Server) handleDefine(ctx context.Context, args map[string]any) (*ToolResult, error) {
	categoryXML, ok := args["category"].(string)
	if !ok || categoryXML == "" {
		return &ToolResult{Content: "category is required", IsError: true}, nil
	}

	cat, err := s.bot.DefineRule(categoryXML)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("define failed: %v", err), IsError: true}, nil
	}

	return &ToolResult{Content: formatCategory(cat)}, nil
}

func (s *Server) handleGet(ctx context.Context, args map[string]any) (*ToolResult, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return &ToolResult{Content: "name is required", IsError: true}, nil
	}
	return &ToolResult{Content: s.bot.GetVariable(name)}, nil
}

func (s *Server) handleSet(ctx context.Context, args map[string]any) (*ToolResult, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return &ToolResult{Content: "name is required", IsError: true}, nil
	}
	value, ok := args["value"].(string)
	if !ok {
		return &ToolResult{Content: "value is required", IsError: true}, nil
	}

	s.bot.SetVariable(name, value)
	return &ToolResult{Content: fmt.Sprintf("Set %s = %q", name, value)}, nil
}

func (s *Server) handleState(ctx context.Context, args map[string]any) (*ToolResult, error) {
	action, _ := args["action"].(string)
	path, _ := args["path"].(string)

	switch action {
	case "", "show":
		stats, err := s.bot.Stats()
		if err != nil {
			return &ToolResult{Content: fmt.Sprintf("stats failed: %v", err), IsError: true}, nil
		}
		return &ToolResult{Content: formatStats(stats, s.bot.Predicates())}, nil
	case "save":
		if err := s.bot.SaveBrain(path); err != nil {
			return &ToolResult{Content: fmt.Sprintf("save failed: %v", err), IsError: true}, nil
		}
		return &ToolResult{Content: "Brain saved."}, nil
	case "load":
		if err := s.bot.LoadBrain(path); err != nil {
			return &ToolResult{Content: fmt.Sprintf("load failed: %v", err), IsError: true}, nil
		}
		return &ToolResult{Content: "Brain loaded."}, nil
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown action: %s", action), IsError: true}, nil
	}
}

func (s *Server) handleReset(ctx context.Context, args map[string]any) (*ToolResult, error) {
	scope, _ := args["scope"].(string)

	switch scope {
	case "", "session":
		s.bot.Reset()
		return &ToolResult{Content: "Session reset."}, nil
	case "brain":
		s.bot.ResetBrain()
		return &ToolResult{Content: "Rule database dropped."}, nil
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown scope: %s", scope), IsError: true}, nil
	}
}
