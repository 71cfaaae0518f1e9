package readers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mkFrames(vals ...float32) [][]float32 {
	out := make([][]float32, len(vals))
	for i, v := range vals {
		out[i] = []float32{v}
	}
	return out
}

func TestNeighborStack_VDim(t *testing.T) {
	n := NeighborStack{Left: 2, Right: 3}
	assert.Equal(t, 6*40, n.VDim(40))
}

func TestNeighborStack_NoContextIsIdentity(t *testing.T) {
	n := NeighborStack{}
	source := mkFrames(1, 2, 3)
	dest := make([]float32, n.VDim(1))
	require.NoError(t, n.AugmentNeighbors(source, 1, dest))
	assert.Equal(t, []float32{2}, dest)
}

func TestNeighborStack_EdgeFramesReplicate(t *testing.T) {
	n := NeighborStack{Left: 2, Right: 2}
	source := mkFrames(10, 20, 30)
	dest := make([]float32, n.VDim(1))
	require.NoError(t, n.AugmentNeighbors(source, 0, dest))
	// t=0, window is [-2,-1,0,1,2] clamped -> [10,10,10,20,30]
	assert.Equal(t, []float32{10, 10, 10, 20, 30}, dest)
}

func TestNeighborStack_OutOfRangeIndexErrors(t *testing.T) {
	n := NeighborStack{}
	source := mkFrames(1, 2, 3)
	dest := make([]float32, n.VDim(1))
	assert.Error(t, n.AugmentNeighbors(source, 3, dest))
	assert.Error(t, n.AugmentNeighbors(source, -1, dest))
}

func TestNeighborStack_OutputAlwaysStaysWithinSourceValues(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := NeighborStack{
			Left:  rapid.IntRange(0, 5).Draw(rt, "left"),
			Right: rapid.IntRange(0, 5).Draw(rt, "right"),
		}
		numFrames := rapid.IntRange(1, 10).Draw(rt, "numFrames")
		vals := make([]float32, numFrames)
		for i := range vals {
			vals[i] = float32(i)
		}
		source := mkFrames(vals...)
		pos := rapid.IntRange(0, numFrames-1).Draw(rt, "t")

		dest := make([]float32, n.VDim(1))
		require.NoError(rt, n.AugmentNeighbors(source, pos, dest))

		for _, v := range dest {
			assert.GreaterOrEqual(rt, v, float32(0))
			assert.Less(rt, v, float32(numFrames))
		}
	})
}
