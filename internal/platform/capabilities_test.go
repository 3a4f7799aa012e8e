package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasBootCapability(t *testing.T) {
	// The answer depends on who runs the tests; loading the current
	// process' capability set must work either way.
	_, err := HasBootCapability()
	assert.NoError(t, err)
}
