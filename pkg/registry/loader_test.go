package registry_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/registry"
)

const validFlow = `
version: 1
start: GREETING
states:
  - name: GREETING
    prompt: "Hello! How can I help?"
    next: [PET_SURRENDER]
  - name: PET_SURRENDER
    required: [animal_type, surrender_reason]
    prompt: "Why are you surrendering {{if .animal_type}}your {{.animal_type}}{{else}}your pet{{end}}?"
    next: [DONE]
  - name: DONE
    prompt: "Goodbye."
`

func TestLoad_ValidFlow(t *testing.T) {
	reg, err := registry.Load(strings.NewReader(validFlow))
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, "GREETING", reg.Start().Name)

	surrender, err := reg.StateByName("PET_SURRENDER")
	require.NoError(t, err)
	assert.Equal(t, []string{"animal_type", "surrender_reason"}, surrender.RequiredFields)
	assert.True(t, surrender.CanTransitionTo("DONE"))

	done, err := reg.StateByName("DONE")
	require.NoError(t, err)
	assert.True(t, done.Terminal())

	// Prompts render against the context.
	got, err := surrender.RenderPrompt(map[string]any{"animal_type": "dog"})
	require.NoError(t, err)
	assert.Equal(t, "Why are you surrendering your dog?", got)
}

func TestLoad_DeclarationOrderPreserved(t *testing.T) {
	reg, err := registry.Load(strings.NewReader(validFlow))
	require.NoError(t, err)

	names := make([]string, 0, reg.Len())
	for _, def := range reg.States() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"GREETING", "PET_SURRENDER", "DONE"}, names)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing start",
			yaml: "version: 1\nstates:\n  - name: A\n    prompt: hi\n",
			want: "missing start state",
		},
		{
			name: "unknown start",
			yaml: "start: NOPE\nstates:\n  - name: A\n    prompt: hi\n",
			want: "start state NOPE",
		},
		{
			name: "missing prompt",
			yaml: "start: A\nstates:\n  - name: A\n",
			want: "has no prompt",
		},
		{
			name: "dangling next",
			yaml: "start: A\nstates:\n  - name: A\n    prompt: hi\n    next: [GHOST]\n",
			want: "GHOST",
		},
		{
			name: "duplicate state",
			yaml: "start: A\nstates:\n  - name: A\n    prompt: hi\n  - name: A\n    prompt: again\n",
			want: "duplicate state A",
		},
		{
			name: "unknown yaml field",
			yaml: "start: A\nstates:\n  - name: A\n    prompt: hi\n    nxt: [A]\n",
			want: "parse flow",
		},
		{
			name: "bad template",
			yaml: "start: A\nstates:\n  - name: A\n    prompt: \"{{.unclosed\"\n",
			want: "prompt",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.Load(strings.NewReader(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRegistry_StateByName_Unknown(t *testing.T) {
	reg, err := registry.Load(strings.NewReader(validFlow))
	require.NoError(t, err)

	_, err = reg.StateByName("GHOST")
	assert.ErrorIs(t, err, domain.ErrUnknownState)
}
