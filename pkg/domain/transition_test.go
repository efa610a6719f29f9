package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warrenhq/warren/pkg/domain"
)

func TestUsage_TotalTokens(t *testing.T) {
	// Token counts arrive as int64 from the model SDK; they must flow into
	// Usage without conversion.
	var input, output int64 = 812, 64
	u := domain.Usage{
		Model:        "claude-haiku-4-5-20251001",
		InputTokens:  input,
		OutputTokens: output,
	}
	assert.Equal(t, int64(876), u.TotalTokens())
}

func TestTransition_Key(t *testing.T) {
	tr := domain.Transition{ConversationID: "call-7", SequenceNumber: 42}
	assert.Equal(t, "call-7:42", tr.Key())
}
