package randomize

import "fmt"

// FrameRef is a bit-packed (chunk_idx, utt_idx, frame_idx) triple
// addressing one frame in frame mode (spec §3 "FrameRef"). spec §9 allows
// either the source's 32-bit-halved layout or a single 64-bit 16/16/16
// layout "if target memory allows"; this package always uses the latter
// — Go gives every build target 64-bit arithmetic for free, so the
// 32-bit variant's only purpose (halving the per-frame index table) has
// no payoff here.
type FrameRef uint64

const (
	frChunkBits = 16
	frUttBits   = 16
	frFrameBits = 16

	// MaxChunks, MaxUtterancesPerChunk and MaxFramesPerUtterance are the
	// per-field ceilings a FrameRef can address.
	MaxChunks             = 1<<frChunkBits - 1
	MaxUtterancesPerChunk = 1<<frUttBits - 1
	MaxFramesPerUtterance = 1<<frFrameBits - 1
)

// NewFrameRef packs (chunkIdx, uttIdx, frameIdx) into a FrameRef, failing
// if any value exceeds its bit width (spec §3: "Construction fails if any
// value exceeds its bit width").
func NewFrameRef(chunkIdx, uttIdx, frameIdx int) (FrameRef, error) {
	if chunkIdx < 0 || chunkIdx > MaxChunks {
		return 0, fmt.Errorf("randomize: chunk index %d exceeds FrameRef width (max %d)", chunkIdx, MaxChunks)
	}
	if uttIdx < 0 || uttIdx > MaxUtterancesPerChunk {
		return 0, fmt.Errorf("randomize: utterance index %d exceeds FrameRef width (max %d)", uttIdx, MaxUtterancesPerChunk)
	}
	if frameIdx < 0 || frameIdx > MaxFramesPerUtterance {
		return 0, fmt.Errorf("randomize: frame index %d exceeds FrameRef width (max %d)", frameIdx, MaxFramesPerUtterance)
	}
	return FrameRef(uint64(chunkIdx)<<(frUttBits+frFrameBits) | uint64(uttIdx)<<frFrameBits | uint64(frameIdx)), nil
}

// ChunkIdx returns the packed chunk index.
func (f FrameRef) ChunkIdx() int {
	return int(uint64(f) >> (frUttBits + frFrameBits))
}

// UttIdx returns the packed utterance-within-chunk index.
func (f FrameRef) UttIdx() int {
	return int((uint64(f) >> frFrameBits) & (1<<frUttBits - 1))
}

// FrameIdx returns the packed frame-within-utterance index.
func (f FrameRef) FrameIdx() int {
	return int(uint64(f) & (1<<frFrameBits - 1))
}
