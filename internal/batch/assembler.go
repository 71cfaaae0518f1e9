// Package batch translates a (global_ts, frames_requested) request into a
// minibatch (spec §4.4): it drives the randomizer to the right sweep,
// figures out which chunks must page in/out, and writes the augmented
// feature matrix plus labels/lattices/transcripts.
package batch

import (
	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/page"
	"github.com/doismellburning/minibatch/internal/randomize"
	"github.com/doismellburning/minibatch/internal/readers"
)

// Result is one assembled minibatch.
type Result struct {
	Feat        [][]float32 // VDim x NumFrames, column-major
	UIDs        []int32     // NumFrames class ids (SentinelLabel if unlabeled)
	Transcripts []string    // one per included utterance, nil in frame mode or if unconfigured
	Lattices    []*readers.Lattice
	PagedIn     bool
}

// Assembler implements spec §4.4's get_batch and first_valid_global_ts.
type Assembler struct {
	corpus      *corpus.Corpus
	rnd         *randomize.Randomizer
	pager       *page.Pager
	aug         readers.Augmentor
	transcripts readers.WordTranscripts // optional
	log         *diag.Logger
}

// New builds an Assembler. transcripts may be nil.
func New(c *corpus.Corpus, rnd *randomize.Randomizer, pager *page.Pager, aug readers.Augmentor, transcripts readers.WordTranscripts, log *diag.Logger) *Assembler {
	return &Assembler{corpus: c, rnd: rnd, pager: pager, aug: aug, transcripts: transcripts, log: log}
}

// FirstValidGlobalTS implements spec §4.4: in utterance mode, the
// smallest boundary >= globalTS; in frame mode, globalTS unchanged.
func (a *Assembler) FirstValidGlobalTS(globalTS int) (int, error) {
	if a.rnd.FrameMode() {
		return globalTS, nil
	}
	if _, err := a.rnd.EnsureRandomizedFor(globalTS); err != nil {
		return 0, err
	}
	return a.rnd.FirstValidGlobalTS(globalTS), nil
}

// GetBatch implements spec §4.4.
func (a *Assembler) GetBatch(globalTS, framesRequested int) (*Result, error) {
	if _, err := a.rnd.EnsureRandomizedFor(globalTS); err != nil {
		return nil, err
	}
	if a.rnd.FrameMode() {
		return a.getBatchFrameMode(globalTS, framesRequested)
	}
	return a.getBatchUtteranceMode(globalTS, framesRequested)
}

func (a *Assembler) releaseOutsideUnion(kBegin, kEnd int) {
	for origIdx, ch := range a.corpus.Chunks {
		if !ch.IsResident() {
			continue
		}
		if a.rnd.InWindow(origIdx, kBegin, kEnd) {
			continue
		}
		a.pager.Release(origIdx)
	}
}

func (a *Assembler) vDim(featDim int) int { return a.aug.VDim(featDim) }
