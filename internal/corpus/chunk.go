package corpus

import "fmt"

// LatticeHandle is an opaque reference to a loaded lattice, handed back by
// a readers.LatticeSource. nil means no lattice is available or configured
// for that utterance.
type LatticeHandle any

// Residency holds the paged-in state of a Chunk: the dense feature matrix
// and the parallel lattice handle list. It is the only mutable state a
// Chunk carries post-construction, kept behind its own type so the
// immutable metadata (utterance list, prefix sums) can be freely shared
// and read without synchronization.
type Residency struct {
	// Frames is feat_dim x TotalFrames, column-major: Frames[col] is one
	// frame's feat_dim values.
	Frames   [][]float32
	Lattices []LatticeHandle
}

// Chunk is the unit of paging: a contiguous run of utterances, loaded and
// evicted as a whole. Everything but the embedded *Residency pointer is
// immutable once the corpus finishes construction.
type Chunk struct {
	Utterances []Utterance

	// FirstFrame[i] is the prefix-sum frame offset of Utterances[i]
	// within this chunk's frame matrix; FirstFrame[len(Utterances)] ==
	// TotalFrames.
	FirstFrame []int

	TotalFrames int

	resident *Residency
}

// newChunk builds an empty chunk ready to accept utterances via append.
func newChunk() *Chunk {
	return &Chunk{FirstFrame: []int{0}}
}

// append adds u to the chunk, extending the prefix-sum table. Returns an
// error if doing so would violate the bit-field caps.
func (c *Chunk) append(u Utterance) error {
	if len(c.Utterances) >= MaxUtterancesPerChunk {
		return fmt.Errorf("corpus: chunk already has MaxUtterancesPerChunk (%d) utterances", MaxUtterancesPerChunk)
	}
	c.Utterances = append(c.Utterances, u)
	c.TotalFrames += u.NumFrames
	c.FirstFrame = append(c.FirstFrame, c.TotalFrames)
	return nil
}

// wouldOverflow reports whether adding an utterance of numFrames frames
// would push this chunk past the target size or the utterance-count cap.
func (c *Chunk) wouldOverflow(numFrames int) bool {
	if len(c.Utterances) == 0 {
		return false // always accept the first utterance, however large
	}
	if len(c.Utterances)+1 > MaxUtterancesPerChunk {
		return true
	}
	return c.TotalFrames+numFrames > TargetFramesPerChunk
}

// IsResident reports whether this chunk's frame matrix is currently
// loaded.
func (c *Chunk) IsResident() bool {
	return c.resident != nil
}

// Residency returns the loaded frame/lattice data, or nil if not
// resident.
func (c *Chunk) Residency() *Residency {
	return c.resident
}

// SetResidency installs r as this chunk's loaded state. Passing nil
// evicts the chunk.
func (c *Chunk) SetResidency(r *Residency) {
	c.resident = r
}

// UtteranceOffset returns the column offset within the chunk's frame
// matrix at which Utterances[uttIdx] begins.
func (c *Chunk) UtteranceOffset(uttIdx int) int {
	return c.FirstFrame[uttIdx]
}
