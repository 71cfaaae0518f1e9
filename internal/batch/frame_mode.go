package batch

import (
	"fmt"

	"github.com/doismellburning/minibatch/internal/diag"
)

func (a *Assembler) getBatchFrameMode(globalTS, framesRequested int) (*Result, error) {
	total := a.corpus.TotalFrames()
	sweepTE := int(a.rnd.CurrentSweep()+1) * total

	globalTE := globalTS + framesRequested
	if globalTE > sweepTE {
		globalTE = sweepTE
	}
	mbFrames := globalTE - globalTS
	if mbFrames <= 0 {
		return nil, fmt.Errorf("batch: global_ts %d is at or past the end of its sweep", globalTS)
	}

	tFirst := globalTS % total
	tLast := (globalTE - 1) % total

	kBegin, _ := a.rnd.WindowForFrame(tFirst)
	_, kEnd := a.rnd.WindowForFrame(tLast)

	a.releaseOutsideUnion(kBegin, kEnd)

	pagedIn := false
	for _, origIdx := range a.rnd.OrigChunksInWindow(kBegin, kEnd) {
		did, err := a.pager.Require(origIdx, true)
		if err != nil {
			return nil, err
		}
		pagedIn = pagedIn || did
	}

	info, _ := a.pager.Info()
	vdim := a.vDim(info.Dim)

	feat := make([][]float32, mbFrames)
	uids := make([]int32, mbFrames)

	for j := 0; j < mbFrames; j++ {
		t := (globalTS + j) % total
		ref := a.rnd.FrameAt(t)

		ch := a.corpus.Chunks[ref.ChunkIdx()]
		u := ch.Utterances[ref.UttIdx()]
		res := ch.Residency()
		if res == nil {
			return nil, fmt.Errorf("batch: chunk %d not resident after Require", ref.ChunkIdx())
		}
		srcOff := ch.UtteranceOffset(ref.UttIdx())
		source := res.Frames[srcOff : srcOff+u.NumFrames]

		feat[j] = make([]float32, vdim)
		if err := a.aug.AugmentNeighbors(source, ref.FrameIdx(), feat[j]); err != nil {
			return nil, err
		}
		uids[j] = a.corpus.Labels[u.LabelOffset+ref.FrameIdx()]
	}

	a.log.Event(diag.LevelInfo, "batch", fmt.Sprintf("mode=frame global_ts=%d frames=%d paged_in=%v", globalTS, mbFrames, pagedIn))

	return &Result{Feat: feat, UIDs: uids, PagedIn: pagedIn}, nil
}
