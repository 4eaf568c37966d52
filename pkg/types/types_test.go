package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableRegionID(t *testing.T) {
	assert.NotEqual(t, TableRegionID(7, 42), TableRegionID(8, 42))
	assert.NotEqual(t, TableRegionID(7, 42), TableRegionID(7, 43))
	assert.Equal(t, RegionID(7<<32|42), TableRegionID(7, 42))
	assert.Equal(t, RegionID(1<<32-1), TableRegionID(0, MaxTableID))
	assert.Equal(t, DefaultRegionID, TableRegionID(0, 0))
}
