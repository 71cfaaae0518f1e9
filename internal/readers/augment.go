package readers

import "fmt"

// Augmentor extends a single source frame with a window of neighboring
// frames, producing the model's actual input vector. It is pure: given
// the same source utterance and frame index it always produces the same
// output, and it never reads or writes any state beyond its arguments.
type Augmentor interface {
	// VDim returns the output dimension this augmentor produces for a
	// source of dimension featDim.
	VDim(featDim int) int

	// AugmentNeighbors writes VDim(featDim) values into dest, stacking
	// source[t-left:t+right+1] (clamped to the utterance's own frame
	// range — neighbors never cross into an adjacent utterance).
	AugmentNeighbors(source [][]float32, t int, dest []float32) error
}

// NeighborStack is the reference Augmentor: it concatenates
// left+1+right frames around t, replicating the first/last frame of the
// utterance when the window runs past an edge (the conventional behavior
// for acoustic-model context windows).
type NeighborStack struct {
	Left, Right int
}

func (n NeighborStack) VDim(featDim int) int {
	return (n.Left + 1 + n.Right) * featDim
}

func (n NeighborStack) AugmentNeighbors(source [][]float32, t int, dest []float32) error {
	if t < 0 || t >= len(source) {
		return fmt.Errorf("readers: augment: t=%d out of range [0,%d)", t, len(source))
	}
	featDim := len(source[0])
	want := n.VDim(featDim)
	if len(dest) != want {
		return fmt.Errorf("readers: augment: dest has %d slots, want %d", len(dest), want)
	}

	last := len(source) - 1
	col := 0
	for off := -n.Left; off <= n.Right; off++ {
		src := t + off
		if src < 0 {
			src = 0
		} else if src > last {
			src = last
		}
		copy(dest[col:col+featDim], source[src])
		col += featDim
	}
	return nil
}
