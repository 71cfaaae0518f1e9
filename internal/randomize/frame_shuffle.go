package randomize

import "fmt"

// shuffleFrames implements spec §4.2 Step D. Admissibility for a candidate
// swap is checked symmetrically from both sides (each frame must land in a
// window that still contains its origin chunk) and nothing else: there is
// no additional post-check after the swap completes. A one-sided check
// would let a frame drift outside its own containing window as a side
// effect of the position it's swapped *into* being admissible while the
// reverse isn't verified; the symmetric check rules that out up front, so
// a post-hoc re-validation pass would only ever confirm what admissible
// already guaranteed. Do not add one back.
func (r *Randomizer) shuffleFrames(sweep int64) error {
	total := r.corpus.TotalFrames()
	seq := make([]FrameRef, total)

	for _, rc := range r.chunks {
		ch := r.corpus.Chunks[rc.OrigChunkIdx]
		col := rc.GlobalTS
		for uttIdx, u := range ch.Utterances {
			for f := 0; f < u.NumFrames; f++ {
				ref, err := NewFrameRef(rc.OrigChunkIdx, uttIdx, f)
				if err != nil {
					return fmt.Errorf("randomize: %w", err)
				}
				seq[col] = ref
				col++
			}
		}
	}

	rng := seededRNG(sweep + 1)
	for t := 0; t < total; t++ {
		k := r.definingChunkForFrame(t)
		win := r.chunks[k]
		lo := r.chunks[win.WindowBegin].GlobalTS
		hi := r.chunks[win.WindowEnd-1].globalTE()

		tries := 0
		for {
			tswap := lo + rng.Intn(hi-lo)
			if t == tswap {
				break // self-swap: silently skipped
			}
			if r.admissible(seq[tswap].ChunkIdx(), t, true) && r.admissible(seq[t].ChunkIdx(), tswap, true) {
				seq[t], seq[tswap] = seq[tswap], seq[t]
				break
			}
			tries++
			if tries >= maxSwapRetries {
				return fmt.Errorf("randomize: frame swap admissibility check did not converge within %d tries at position %d (window [%d,%d) too narrow for randomization_range)", maxSwapRetries, t, lo, hi)
			}
		}
	}

	r.frameSeq = seq
	return nil
}

// FrameAt returns randomized_frames[t] for sweep-relative position t
// (i.e. t == global_ts mod total_frames).
func (r *Randomizer) FrameAt(t int) FrameRef { return r.frameSeq[t] }
