package memory

import (
	"testing"

	"github.com/warrenhq/warren/pkg/ports"
)

func TestSinkContract(t *testing.T) {
	ports.RunTransitionSinkContract(t, NewSink())
}
