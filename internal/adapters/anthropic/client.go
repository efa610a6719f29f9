// Package anthropic implements ports.ModelClient on the Anthropic Messages
// API. Decisions are forced through a tool call so the reply is structured
// JSON rather than free text.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mitchellh/mapstructure"

	"github.com/warrenhq/warren/pkg/domain"
)

const (
	routeToolName    = "route_conversation"
	defaultMaxTokens = 1024
)

// Client implements ports.ModelClient for Claude models.
type Client struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

type Option func(*Client)

// WithMaxTokens caps the generated response length.
func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = n }
}

// New creates an Anthropic-backed model client.
func New(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if !strings.HasPrefix(model, "claude-") {
		return nil, fmt.Errorf("model %q is not an Anthropic model", model)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// routePayload is the strict shape of the route_conversation tool arguments.
type routePayload struct {
	Updates    map[string]any `mapstructure:"updates"`
	NextState  string         `mapstructure:"next_state"`
	Response   string         `mapstructure:"response"`
	Confidence float64        `mapstructure:"confidence"`
}

// Decide asks the model to route the turn, forcing the route_conversation
// tool so the reply is machine-checkable.
func (c *Client) Decide(ctx context.Context, req domain.DecisionRequest) (*domain.ModelDecision, error) {
	tool := c.routeTool(req)
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: decideSystemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(decideUserPrompt(req))),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &tool},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: routeToolName},
		},
	})
	if err != nil {
		return nil, domain.NewCollaboratorError("anthropic", fmt.Errorf("messages call failed: %w", err))
	}

	payload, err := extractRoute(msg)
	if err != nil {
		return nil, domain.NewCollaboratorError("anthropic", err)
	}
	if req.ComposeResponse && payload.Response == "" {
		return nil, domain.NewCollaboratorError("anthropic", fmt.Errorf("tool call omitted response"))
	}

	return &domain.ModelDecision{
		Updates:    payload.Updates,
		NextState:  payload.NextState,
		Response:   payload.Response,
		Confidence: payload.Confidence,
		Usage: domain.Usage{
			Model:        string(msg.Model),
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// Respond voices the entry of a state reached through the fallback path.
// This is a plain-text call; no tool is involved.
func (c *Client) Respond(ctx context.Context, req domain.ResponseRequest) (*domain.ModelReply, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: respondSystemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(respondUserPrompt(req))),
		},
	})
	if err != nil {
		return nil, domain.NewCollaboratorError("anthropic", fmt.Errorf("messages call failed: %w", err))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	response := strings.TrimSpace(text.String())
	if response == "" {
		return nil, domain.NewCollaboratorError("anthropic", fmt.Errorf("empty text response"))
	}

	return &domain.ModelReply{
		Response: response,
		Usage: domain.Usage{
			Model:        string(msg.Model),
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

func (c *Client) routeTool(req domain.DecisionRequest) anthropic.ToolParam {
	names := make([]string, 0, len(req.Candidates)+1)
	names = append(names, domain.NextStateStay)
	for _, cand := range req.Candidates {
		names = append(names, cand.Name)
	}

	properties := map[string]any{
		"updates": map[string]any{
			"type":        "object",
			"description": "Field values extracted from the caller's message. Only include fields you are certain about.",
		},
		"next_state": map[string]any{
			"type":        "string",
			"enum":        names,
			"description": "The state to move to, or \"stay\" to remain in the current state.",
		},
		"confidence": map[string]any{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": "Confidence in the routing decision.",
		},
	}
	required := []string{"next_state"}
	if req.ComposeResponse {
		properties["response"] = map[string]any{
			"type":        "string",
			"description": "The next thing to say to the caller, in character for the chosen state.",
		}
		required = append(required, "response")
	}

	return anthropic.ToolParam{
		Name:        routeToolName,
		Description: anthropic.String("Route the conversation: extract field updates, choose the next state and compose the reply."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: properties,
			Required:   required,
		},
	}
}

// extractRoute finds the forced tool call and strictly decodes its
// arguments. Unknown or mistyped fields fail the decode; the engine treats
// that as a collaborator failure and falls back.
func extractRoute(msg *anthropic.Message) (*routePayload, error) {
	for _, block := range msg.Content {
		if block.Type != "tool_use" || block.Name != routeToolName {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(block.Input, &raw); err != nil {
			return nil, fmt.Errorf("malformed tool arguments: %w", err)
		}
		var payload routePayload
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &payload,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("tool arguments failed validation: %w", err)
		}
		if payload.NextState == "" {
			return nil, fmt.Errorf("tool call omitted next_state")
		}
		return &payload, nil
	}
	return nil, fmt.Errorf("no %s tool call in response", routeToolName)
}

func decideSystemPrompt(req domain.DecisionRequest) string {
	var b strings.Builder
	b.WriteString("You are the dispatcher for an animal control intake line. ")
	b.WriteString("Each turn you receive the caller's message, the current state of the call and the states you may move to. ")
	b.WriteString("Extract any field values the caller provided, then pick the next state. ")
	b.WriteString("Only move to a state when its required fields are collected or the caller clearly asked for it. ")
	b.WriteString("Always answer by calling the " + routeToolName + " tool.\n\n")
	b.WriteString("Current state: " + req.State + "\n")
	b.WriteString("State instructions:\n" + req.StatePrompt + "\n\n")
	b.WriteString("Candidate states:\n")
	for _, cand := range req.Candidates {
		fmt.Fprintf(&b, "- %s (required: %s; still missing: %s)\n",
			cand.Name,
			strings.Join(cand.RequiredFields, ", "),
			strings.Join(cand.MissingFields, ", "))
	}
	return b.String()
}

func decideUserPrompt(req domain.DecisionRequest) string {
	ctxJSON, _ := json.Marshal(req.Context)
	return fmt.Sprintf("Collected so far: %s\n\nCaller says: %s", ctxJSON, req.UserInput)
}

func respondSystemPrompt(req domain.ResponseRequest) string {
	return "You are the voice of an animal control intake line. " +
		"The call just moved from state " + req.PreviousState + " to state " + req.State + ". " +
		"Speak the entry of the new state: follow its instructions, be brief and warm, and reply with the spoken text only.\n\n" +
		"State instructions:\n" + req.StatePrompt
}

func respondUserPrompt(req domain.ResponseRequest) string {
	ctxJSON, _ := json.Marshal(req.Context)
	return fmt.Sprintf("Collected so far: %s\n\nSay the next thing to the caller.", ctxJSON)
}
