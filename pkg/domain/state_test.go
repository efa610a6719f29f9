package domain_test

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/domain"
)

func TestStateDef_Terminal(t *testing.T) {
	terminal := domain.StateDef{Name: "FINAL_SUMMARY"}
	assert.True(t, terminal.Terminal())

	open := domain.StateDef{Name: "GREETING", AllowedNext: []string{"PET_SURRENDER"}}
	assert.False(t, open.Terminal())
	assert.True(t, open.CanTransitionTo("PET_SURRENDER"))
	assert.False(t, open.CanTransitionTo("CASE_COMPLETE"))
}

func TestStateDef_RenderPrompt(t *testing.T) {
	tmpl := template.Must(template.New("PET_SURRENDER").
		Option("missingkey=zero").
		Parse("Surrendering {{if .animal_type}}a {{.animal_type}}{{else}}an animal{{end}}. Why?"))
	state := domain.StateDef{Name: "PET_SURRENDER", Prompt: tmpl}

	got, err := state.RenderPrompt(map[string]any{"animal_type": "dog"})
	require.NoError(t, err)
	assert.Equal(t, "Surrendering a dog. Why?", got)

	got, err = state.RenderPrompt(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Surrendering an animal. Why?", got)
}

func TestStateDef_RenderPrompt_NoTemplate(t *testing.T) {
	state := domain.StateDef{Name: "BROKEN"}
	_, err := state.RenderPrompt(nil)
	assert.ErrorIs(t, err, domain.ErrUnknownState)
}
