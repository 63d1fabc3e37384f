package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/courtside/internal/engine"
)

var _ engine.OpIDGenerator = (*SequentialOpIDs)(nil)

func TestSequentialOpIDs(t *testing.T) {
	g := NewSequentialOpIDs("scn")
	assert.Equal(t, "scn-0001", g.Generate())
	assert.Equal(t, "scn-0002", g.Generate())

	assert.Equal(t, "op-0001", NewSequentialOpIDs("").Generate())
}
