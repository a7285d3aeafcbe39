package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnlocked(t *testing.T) {
	assert.Len(t, Unlocked(0), 0)
	assert.Equal(t, "first-run", Unlocked(1)[0].ID)
	assert.Len(t, Unlocked(2), 0)
	assert.Equal(t, "five-runs", Unlocked(5)[0].ID)
	assert.Equal(t, "twenty-five-runs", Unlocked(25)[0].ID)
}
