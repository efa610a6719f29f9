// Package mcp exposes the conversation engine as an MCP server, so agent
// tooling can drive intake conversations over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/warrenhq/warren/pkg/convo"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/registry"
)

// ReplyResponse is the structured result of a conversation tool call.
type ReplyResponse struct {
	ConversationID string                `json:"conversation_id" jsonschema_description:"The conversation this reply belongs to"`
	Text           string                `json:"text" jsonschema_description:"The agent's reply to the caller"`
	State          string                `json:"state" jsonschema_description:"The conversation's state after the turn"`
	Status         domain.Status         `json:"status" jsonschema_description:"in_progress, completed, error or abandoned"`
	Sequence       uint64                `json:"sequence" jsonschema_description:"The turn's sequence number"`
	Type           domain.TransitionType `json:"transition_type,omitempty" jsonschema_description:"How the turn was decided"`
}

// flowState is the wire shape of one state definition.
type flowState struct {
	Name     string   `json:"name"`
	Required []string `json:"required,omitempty"`
	Next     []string `json:"next,omitempty"`
	Terminal bool     `json:"terminal"`
}

// Server wraps the conversation manager and exposes it as an MCP server.
type Server struct {
	manager   *convo.Manager
	registry  *registry.Registry
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server for the given manager and flow.
func NewServer(manager *convo.Manager, reg *registry.Registry, version string) *Server {
	s := &Server{
		manager:   manager,
		registry:  reg,
		mcpServer: server.NewMCPServer("warren-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_conversation",
		mcp.WithDescription("Start an intake conversation and get the opening greeting. Omit conversation_id to have one generated."),
		mcp.WithString("conversation_id", mcp.Description("Conversation ID to create or resume (optional)")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	sendTool := mcp.NewTool("send_input",
		mcp.WithDescription("Send one caller utterance into a conversation and get the agent's reply."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("input", mcp.Required(), mcp.Description("The caller's utterance")),
		mcp.WithOutputSchema[ReplyResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSend))

	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Get a conversation's current state, status and collected context."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("conversation_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		snap, err := s.manager.Snapshot(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(snap)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Get the intake flow topology for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.flowStates())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	id, _ := args["conversation_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}

	reply, err := s.manager.Start(ctx, id)
	if err != nil {
		return ReplyResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return ReplyResponse{
		ConversationID: id,
		Text:           reply.Text,
		State:          reply.State,
		Status:         reply.Status,
		Sequence:       reply.Sequence,
	}, nil
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReplyResponse, error) {
	id, _ := args["conversation_id"].(string)
	input, _ := args["input"].(string)
	if id == "" || input == "" {
		return ReplyResponse{}, fmt.Errorf("conversation_id and input are required")
	}

	reply, err := s.manager.Deliver(ctx, id, input)
	if err != nil {
		return ReplyResponse{}, fmt.Errorf("deliver failed: %w", err)
	}
	return ReplyResponse{
		ConversationID: id,
		Text:           reply.Text,
		State:          reply.State,
		Status:         reply.Status,
		Sequence:       reply.Sequence,
		Type:           reply.Type,
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("warren://flow", "Intake Flow Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.flowStates())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal flow: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "warren://flow",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) flowStates() []flowState {
	defs := s.registry.States()
	out := make([]flowState, 0, len(defs))
	for _, def := range defs {
		out = append(out, flowState{
			Name:     def.Name,
			Required: def.RequiredFields,
			Next:     def.AllowedNext,
			Terminal: def.Terminal(),
		})
	}
	return out
}
