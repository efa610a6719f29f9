package scripted_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/adapters/scripted"
	"github.com/warrenhq/warren/pkg/domain"
)

func TestClient_FirstMatchWins(t *testing.T) {
	c := scripted.New(
		scripted.Rule{
			Keywords:  []string{"dog"},
			Updates:   map[string]any{"animal_type": "dog"},
			NextState: "PET_SURRENDER",
			Response:  "first",
		},
		scripted.Rule{
			Keywords: []string{"dog"},
			Response: "second",
		},
	)

	d, err := c.Decide(context.Background(), domain.DecisionRequest{
		State:           "GREETING",
		UserInput:       "I have a DOG to drop off",
		ComposeResponse: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "PET_SURRENDER", d.NextState)
	assert.Equal(t, map[string]any{"animal_type": "dog"}, d.Updates)
	assert.Equal(t, "first", d.Response)
	assert.Equal(t, float64(1), d.Confidence)
}

func TestClient_StateScopedRules(t *testing.T) {
	c := scripted.New(scripted.Rule{
		State:     "PET_SURRENDER",
		Keywords:  []string{"dog"},
		NextState: "DONE",
	})

	d, err := c.Decide(context.Background(), domain.DecisionRequest{
		State:     "GREETING",
		UserInput: "my dog",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NextStateStay, d.NextState, "rule for another state must not fire")

	d, err = c.Decide(context.Background(), domain.DecisionRequest{
		State:     "PET_SURRENDER",
		UserInput: "my dog",
	})
	require.NoError(t, err)
	assert.Equal(t, "DONE", d.NextState)
}

func TestClient_NoMatchStays(t *testing.T) {
	c := scripted.New()

	d, err := c.Decide(context.Background(), domain.DecisionRequest{
		State:           "GREETING",
		UserInput:       "mumble",
		StatePrompt:     "How can I help?",
		ComposeResponse: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NextStateStay, d.NextState)
	assert.Equal(t, "How can I help?", d.Response)
}

func TestClient_DecideOnlyOmitsResponse(t *testing.T) {
	c := scripted.New(scripted.Rule{
		Keywords:  []string{"dog"},
		NextState: "PET_SURRENDER",
		Response:  "should not appear",
	})

	d, err := c.Decide(context.Background(), domain.DecisionRequest{
		State:     "GREETING",
		UserInput: "dog",
	})
	require.NoError(t, err)
	assert.Empty(t, d.Response)
}

func TestClient_RespondVoicesPrompt(t *testing.T) {
	c := scripted.New()

	r, err := c.Respond(context.Background(), domain.ResponseRequest{
		State:       "PET_SURRENDER",
		StatePrompt: "Why are you surrendering your dog?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Why are you surrendering your dog?", r.Response)
}

func TestDefaultRules_RouteGreetingIntents(t *testing.T) {
	c := scripted.New(scripted.DefaultRules()...)

	cases := []struct {
		input string
		want  string
	}{
		{"there's an injured raccoon on my porch", "EMERGENCY_CASE"},
		{"I found a stray cat", "REPORT_FOUND"},
		{"my dog is missing", "REPORT_LOST"},
		{"I need to surrender my dog", "PET_SURRENDER"},
		{"what are your hours?", "GENERAL_INFO"},
	}
	for _, tc := range cases {
		d, err := c.Decide(context.Background(), domain.DecisionRequest{
			State:     "GREETING",
			UserInput: tc.input,
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.NextState, "input %q", tc.input)
	}
}
