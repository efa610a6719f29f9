package decision

import (
	"strings"

	"github.com/warrenhq/warren/pkg/domain"
)

// Policy decides whether a combined-call decision can be used directly, or
// whether the turn must fall back to the two-call path. It sees only
// decisions that already passed shape validation and transition checks.
type Policy func(d *domain.ModelDecision) bool

// DefaultMinConfidence is the routing-confidence floor below which the
// optimized decision is discarded.
const DefaultMinConfidence = 0.5

// DefaultPolicy accepts an optimized decision when it carries a usable
// response text and its confidence is at or above minConfidence. A zero
// confidence is treated as "not reported" and accepted.
func DefaultPolicy(minConfidence float64) Policy {
	return func(d *domain.ModelDecision) bool {
		if strings.TrimSpace(d.Response) == "" {
			return false
		}
		if d.Confidence > 0 && d.Confidence < minConfidence {
			return false
		}
		return true
	}
}
