package domain_test

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/domain"
)

func TestContext_ApplyUpdates(t *testing.T) {
	c := domain.NewContext()

	snap, err := c.ApplyUpdates(map[string]any{"animal_type": "dog"})
	require.NoError(t, err)
	assert.Equal(t, "dog", snap["animal_type"])

	// Corrections overwrite, nothing else is erased.
	snap, err = c.ApplyUpdates(map[string]any{"animal_type": "cat", "location": "5th and Main"})
	require.NoError(t, err)
	assert.Equal(t, "cat", snap["animal_type"])
	assert.Equal(t, "5th and Main", snap["location"])
	assert.Equal(t, 2, c.Len())
}

func TestContext_ApplyUpdates_Atomic(t *testing.T) {
	c := domain.NewContext()
	_, err := c.ApplyUpdates(map[string]any{"animal_type": "dog"})
	require.NoError(t, err)

	oversize := strings.Repeat("x", domain.MaxContextValueBytes+1)
	_, err = c.ApplyUpdates(map[string]any{
		"location":    "downtown",
		"description": oversize,
	})
	require.ErrorIs(t, err, domain.ErrInvalidContextValue)

	// The valid key from the failed delta must not have been written.
	_, ok := c.Get("location")
	assert.False(t, ok, "a rejected delta must not be partially applied")
	assert.Equal(t, 1, c.Len())
}

func TestContext_SnapshotIsolation(t *testing.T) {
	c := domain.NewContext()
	_, err := c.ApplyUpdates(map[string]any{"animal_type": "dog"})
	require.NoError(t, err)

	snap := c.Snapshot()
	snap["animal_type"] = "ferret"

	v, _ := c.Get("animal_type")
	assert.Equal(t, "dog", v)
}

func TestContext_MissingRequired(t *testing.T) {
	state := domain.StateDef{
		Name:           "PET_SURRENDER",
		RequiredFields: []string{"animal_type", "surrender_reason", "owner_contact"},
		Prompt:         template.Must(template.New("p").Parse("x")),
	}

	c := domain.NewContext()
	assert.Equal(t, []string{"animal_type", "surrender_reason", "owner_contact"}, c.MissingRequired(state))

	_, err := c.ApplyUpdates(map[string]any{
		"surrender_reason": "moving abroad",
		"owner_contact":    "", // empty string counts as missing
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"animal_type", "owner_contact"}, c.MissingRequired(state))
}
