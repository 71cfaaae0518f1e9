// Package corpus holds the fixed, immutable-after-construction description
// of a training corpus: utterances grouped into paging chunks, plus the
// flat per-frame label array shared across the whole corpus.
package corpus

import "fmt"

// SentinelLabel marks the end of an utterance's run in the flat label
// array. labels[L+n] must equal SentinelLabel for every utterance whose
// label offset is L and frame count is n.
const SentinelLabel int32 = -1

// MaxUtterancesPerChunk and MaxFramesPerUtterance are the bit-field caps
// that back randomize.FrameRef's packed (chunk, utt, frame) encoding.
// They bound Chunk construction even when the corpus is built in
// utterance mode, since a corpus must support either mode without
// reshaping.
const (
	MaxUtterancesPerChunk = 1<<16 - 1
	MaxFramesPerUtterance = 1<<16 - 1
	TargetFramesPerChunk  = 100 * 15 * 60 // 100 fps * 15 minutes
	MinFramesPerUtterance = 2
)

// Utterance is immutable metadata for one training utterance. It never
// holds frame data itself — that lives in the chunk's frame matrix while
// the chunk is resident.
type Utterance struct {
	ArchivePath string // opaque path/key understood by the feature reader
	Key         string // utterance key parsed from ArchivePath
	NumFrames   int    // n >= MinFramesPerUtterance
	LabelOffset int    // L: first frame's label lives at labels[L]
}

// newUtterance validates and constructs an Utterance. Rejection reasons
// map to the per-utterance warnings in spec §7 kind 4; callers decide
// whether to skip or to treat as fatal.
func newUtterance(path, key string, numFrames, labelOffset int) (Utterance, error) {
	if numFrames < MinFramesPerUtterance {
		return Utterance{}, fmt.Errorf("corpus: utterance %q has %d frames, need >= %d", key, numFrames, MinFramesPerUtterance)
	}
	if numFrames > MaxFramesPerUtterance {
		return Utterance{}, fmt.Errorf("corpus: utterance %q has %d frames, exceeds MaxFramesPerUtterance %d", key, numFrames, MaxFramesPerUtterance)
	}
	return Utterance{
		ArchivePath: path,
		Key:         key,
		NumFrames:   numFrames,
		LabelOffset: labelOffset,
	}, nil
}

// LastLabelIndex returns the index of the last frame's label in the flat
// label array (labels[L+n-1]).
func (u Utterance) LastLabelIndex() int {
	return u.LabelOffset + u.NumFrames - 1
}

// SentinelIndex returns the index that must hold SentinelLabel.
func (u Utterance) SentinelIndex() int {
	return u.LabelOffset + u.NumFrames
}
