// Package scripted implements ports.ModelClient with deterministic keyword
// rules. It powers the interactive demo and the integration tests, where a
// real model would make assertions impossible.
package scripted

import (
	"context"
	"strings"

	"github.com/warrenhq/warren/pkg/domain"
)

// Rule maps caller phrasing to a routing decision. The first matching rule
// wins; matching is case-insensitive substring on each keyword.
type Rule struct {
	// State restricts the rule to a current state. Empty matches any state.
	State string
	// Keywords trigger the rule when any of them occurs in the input.
	Keywords []string
	// Updates is the context delta the rule extracts.
	Updates map[string]any
	// NextState is the proposed state; empty means stay.
	NextState string
	// Response is the composed reply for the single-call path.
	Response string
}

func (r Rule) matches(state, input string) bool {
	if r.State != "" && r.State != state {
		return false
	}
	lower := strings.ToLower(input)
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Client is a rule-driven model collaborator.
type Client struct {
	rules []Rule
}

// New creates a scripted client. With no rules every input stays in place.
func New(rules ...Rule) *Client {
	return &Client{rules: rules}
}

// Decide applies the first matching rule.
func (c *Client) Decide(ctx context.Context, req domain.DecisionRequest) (*domain.ModelDecision, error) {
	for _, r := range c.rules {
		if !r.matches(req.State, req.UserInput) {
			continue
		}
		d := &domain.ModelDecision{
			Updates:    r.Updates,
			NextState:  r.NextState,
			Confidence: 1,
			Usage:      domain.Usage{Model: "scripted"},
		}
		if d.NextState == "" {
			d.NextState = domain.NextStateStay
		}
		if req.ComposeResponse {
			d.Response = r.Response
			if d.Response == "" {
				d.Response = "Got it. " + req.StatePrompt
			}
		}
		return d, nil
	}
	d := &domain.ModelDecision{
		NextState:  domain.NextStateStay,
		Confidence: 1,
		Usage:      domain.Usage{Model: "scripted"},
	}
	if req.ComposeResponse {
		d.Response = req.StatePrompt
	}
	return d, nil
}

// Respond voices the target state's own prompt.
func (c *Client) Respond(ctx context.Context, req domain.ResponseRequest) (*domain.ModelReply, error) {
	return &domain.ModelReply{
		Response: req.StatePrompt,
		Usage:    domain.Usage{Model: "scripted"},
	}, nil
}

// DefaultRules covers the stock animal control flow well enough for a demo
// conversation end to end.
func DefaultRules() []Rule {
	return []Rule{
		{
			State:     "GREETING",
			Keywords:  []string{"emergency", "injured", "hurt", "abuse"},
			Updates:   map[string]any{"detected_intent": "emergency"},
			NextState: "EMERGENCY_CASE",
			Response:  "I'm treating this as an emergency. What kind of animal is it, what condition is it in, and where is it?",
		},
		{
			State:     "GREETING",
			Keywords:  []string{"found"},
			Updates:   map[string]any{"detected_intent": "found"},
			NextState: "REPORT_FOUND",
			Response:  "Thank you for reporting a found animal. What kind of animal is it and where did you find it?",
		},
		{
			State:     "GREETING",
			Keywords:  []string{"lost", "missing"},
			Updates:   map[string]any{"detected_intent": "lost"},
			NextState: "REPORT_LOST",
			Response:  "I'm sorry to hear that. What kind of animal is it and where did you last see it?",
		},
		{
			State:     "GREETING",
			Keywords:  []string{"surrender", "give up", "rehome"},
			Updates:   map[string]any{"detected_intent": "surrender"},
			NextState: "PET_SURRENDER",
			Response:  "I can help you schedule a surrender. What kind of animal is it, and what's the reason?",
		},
		{
			State:     "GREETING",
			Keywords:  []string{"question", "info", "hours", "license"},
			Updates:   map[string]any{"detected_intent": "info"},
			NextState: "GENERAL_INFO",
			Response:  "Happy to help with general information. What would you like to know?",
		},
		{
			State:     "PET_SURRENDER",
			Keywords:  []string{"dog"},
			Updates:   map[string]any{"animal_type": "dog"},
			Response:  "Understood, a dog. Why do you need to surrender it?",
		},
		{
			State:     "PET_SURRENDER",
			Keywords:  []string{"cat"},
			Updates:   map[string]any{"animal_type": "cat"},
			Response:  "Understood, a cat. Why do you need to surrender it?",
		},
		{
			State:     "PET_SURRENDER",
			Keywords:  []string{"moving", "allerg", "can't keep", "cannot keep"},
			Updates:   map[string]any{"surrender_reason": "owner circumstances", "health_issues": "none reported"},
			NextState: "SCHEDULE_SURRENDER",
			Response:  "Thank you for explaining. Let's find an appointment: Monday 10 AM to 2 PM, Wednesday 1 PM to 4 PM, or Friday 9 AM to noon?",
		},
		{
			State:     "SCHEDULE_SURRENDER",
			Keywords:  []string{"monday", "wednesday", "friday"},
			Updates:   map[string]any{"selected_date": "next available"},
			NextState: "CASE_CONFIRMATION",
			Response:  "That's booked. Let me confirm your details.",
		},
		{
			State:     "CASE_CONFIRMATION",
			Keywords:  []string{"yes", "correct", "right"},
			NextState: "CASE_COMPLETE",
			Response:  "Your case has been submitted. An officer will follow up as needed.",
		},
		{
			State:     "CASE_COMPLETE",
			Keywords:  []string{"no", "nothing", "that's all", "bye"},
			NextState: "FINAL_SUMMARY",
			Response:  "Thank you for calling Animal Control Services. Goodbye.",
		},
	}
}
