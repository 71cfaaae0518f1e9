package randomize

import "fmt"

// shuffleUtterances implements spec §4.2 Step C.
func (r *Randomizer) shuffleUtterances(sweep int64) error {
	total := r.corpus.TotalUtterances()
	seq := make([]UtteranceRef, total)

	for k := range r.chunks {
		rc := r.chunks[k]
		ch := r.corpus.Chunks[rc.OrigChunkIdx]
		for i, u := range ch.Utterances {
			seq[rc.UtterancePosBegin+i] = UtteranceRef{
				ChunkIdx:  rc.OrigChunkIdx,
				UttIdx:    i,
				NumFrames: u.NumFrames,
			}
		}
	}

	rng := seededRNG(sweep + 1)
	for i := 0; i < total; i++ {
		k := r.definingChunkForUtterancePos(i)
		win := r.chunks[k]
		lo := r.chunks[win.WindowBegin].UtterancePosBegin
		hi := r.chunks[win.WindowEnd-1].uttPosEnd()

		tries := 0
		for {
			j := lo + rng.Intn(hi-lo)
			if i == j {
				break // self-swap: silently skipped
			}
			if r.admissible(seq[j].ChunkIdx, i, false) && r.admissible(seq[i].ChunkIdx, j, false) {
				seq[i], seq[j] = seq[j], seq[i]
				break
			}
			tries++
			if tries >= maxSwapRetries {
				return fmt.Errorf("randomize: utterance swap admissibility check did not converge within %d tries at position %d (window [%d,%d) too narrow for randomization_range)", maxSwapRetries, i, lo, hi)
			}
		}
	}

	sweepTS := int(sweep) * r.corpus.TotalFrames()
	cum := sweepTS
	for i := range seq {
		seq[i].GlobalTS = cum
		cum += seq[i].NumFrames
	}

	r.uttSeq = seq
	r.posByGlobal = make(map[int]int, total)
	for p, u := range seq {
		r.posByGlobal[u.GlobalTS] = p
	}
	return nil
}

// UtteranceAt returns randomized_utterances[p].
func (r *Randomizer) UtteranceAt(p int) UtteranceRef { return r.uttSeq[p] }

// NumUtterances returns the number of utterance-mode positions in a
// sweep.
func (r *Randomizer) NumUtterances() int { return len(r.uttSeq) }

// PosForGlobalTS implements the utterance-mode half of spec
// §4.4's boundary lookup: the position p such that
// randomized_utterances[p].globalts == globalTS, or ok=false if globalTS
// is not a boundary.
func (r *Randomizer) PosForGlobalTS(globalTS int) (int, bool) {
	p, ok := r.posByGlobal[globalTS]
	return p, ok
}

// FirstValidGlobalTS implements spec §4.4's first_valid_global_ts for
// utterance mode: the smallest boundary >= globalTS. Utterance mode
// callers must have called EnsureRandomizedFor(globalTS) first so the
// boundary dictionary reflects the right sweep.
func (r *Randomizer) FirstValidGlobalTS(globalTS int) int {
	// uttSeq is sorted by GlobalTS (cumulative sum), so a linear scan
	// from the end of the previous sweep's tail would work too, but
	// binary search keeps this correct even if called off a stale
	// position.
	lo, hi := 0, len(r.uttSeq)
	for lo < hi {
		mid := (lo + hi) / 2
		if r.uttSeq[mid].GlobalTS < globalTS {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == len(r.uttSeq) {
		// Past the end of this sweep: the next sweep's first boundary.
		return (int(r.sweep) + 1) * r.corpus.TotalFrames()
	}
	return r.uttSeq[lo].GlobalTS
}
