package batch

import (
	"fmt"

	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/readers"
)

func (a *Assembler) getBatchUtteranceMode(globalTS, framesRequested int) (*Result, error) {
	spos, ok := a.rnd.PosForGlobalTS(globalTS)
	if !ok {
		return nil, fmt.Errorf("batch: global_ts %d is not a valid utterance-mode boundary — invariant violation", globalTS)
	}

	epos := spos + 1
	total := a.rnd.UtteranceAt(spos).NumFrames
	for epos < a.rnd.NumUtterances() {
		next := a.rnd.UtteranceAt(epos)
		if total+next.NumFrames >= framesRequested {
			break
		}
		total += next.NumFrames
		epos++
	}

	kBegin, _ := a.rnd.WindowForUtterancePos(spos)
	_, kEnd := a.rnd.WindowForUtterancePos(epos - 1)

	a.releaseOutsideUnion(kBegin, kEnd)

	pagedIn := false
	for p := spos; p < epos; p++ {
		ref := a.rnd.UtteranceAt(p)
		inWin := a.rnd.InWindow(ref.ChunkIdx, kBegin, kEnd)
		did, err := a.pager.Require(ref.ChunkIdx, inWin)
		if err != nil {
			return nil, err
		}
		pagedIn = pagedIn || did
	}

	info, _ := a.pager.Info()
	vdim := a.vDim(info.Dim)

	feat := make([][]float32, total)
	uids := make([]int32, total)
	var transcripts []string
	var lattices []*readers.Lattice

	col := 0
	for p := spos; p < epos; p++ {
		ref := a.rnd.UtteranceAt(p)
		ch := a.corpus.Chunks[ref.ChunkIdx]
		u := ch.Utterances[ref.UttIdx]
		res := ch.Residency()
		if res == nil {
			return nil, fmt.Errorf("batch: chunk %d not resident after Require", ref.ChunkIdx)
		}
		srcOff := ch.UtteranceOffset(ref.UttIdx)
		source := res.Frames[srcOff : srcOff+u.NumFrames]

		for t := 0; t < u.NumFrames; t++ {
			feat[col] = make([]float32, vdim)
			if err := a.aug.AugmentNeighbors(source, t, feat[col]); err != nil {
				return nil, err
			}
			uids[col] = a.corpus.Labels[u.LabelOffset+t]
			col++
		}

		if a.transcripts != nil {
			tr, _ := a.transcripts.Transcript(u.Key)
			transcripts = append(transcripts, tr)
		}
		if len(res.Lattices) > 0 {
			if l, ok := res.Lattices[ref.UttIdx].(*readers.Lattice); ok {
				lattices = append(lattices, l)
			} else {
				lattices = append(lattices, nil)
			}
		}
	}

	a.log.Event(diag.LevelInfo, "batch", fmt.Sprintf("mode=utterance global_ts=%d frames=%d utterances=%d paged_in=%v", globalTS, total, epos-spos, pagedIn))

	return &Result{Feat: feat, UIDs: uids, Transcripts: transcripts, Lattices: lattices, PagedIn: pagedIn}, nil
}
