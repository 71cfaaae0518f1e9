// Package page owns chunk residency (spec §4.3): it enforces "all chunks
// in the current position's window are resident; others may be evicted",
// retries transient read failures, and discovers global feature metadata
// from the first chunk it ever loads.
package page

import (
	"errors"
	"fmt"
	"time"

	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/readers"
)

// maxReadRetries bounds the retry loop in Require for transient archive
// read failures (spec §4.3/§7 kind 3).
const maxReadRetries = 5

// TransientError wraps an error a FeatureReader or LatticeSource returns
// that Require should retry. Readers that always fail the same way for
// the same input (corruption, not-found) should NOT wrap their error in
// TransientError, since retrying those wastes the retry budget for no
// reason.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Pager loads and evicts chunk residency on demand.
type Pager struct {
	corpus   *corpus.Corpus
	features readers.FeatureReader
	lattices readers.LatticeSource
	log      *diag.Logger

	sleep func(time.Duration)

	haveInfo bool
	info     readers.FeatureInfo
}

// New builds a Pager over c. lattices may be nil if the corpus was built
// without lattice support.
func New(c *corpus.Corpus, features readers.FeatureReader, lattices readers.LatticeSource, log *diag.Logger) *Pager {
	return &Pager{
		corpus:   c,
		features: features,
		lattices: lattices,
		log:      log,
		sleep:    time.Sleep,
	}
}

// Info returns the feature metadata discovered on first load. Valid only
// after at least one successful Require call.
func (p *Pager) Info() (readers.FeatureInfo, bool) { return p.info, p.haveInfo }

// Require implements spec §4.3: fails fatally if inWindow is false, no-
// ops if the chunk is already resident, otherwise loads it (retrying
// transient failures up to maxReadRetries times). Returns true if a read
// happened (the paged_in signal spec §4.4/§6 calls for).
//
// inWindow membership is computed by the caller (the batch assembler,
// which alone knows how to map a randomized-chunk-index window onto
// original chunk indices — see randomize.Randomizer.InWindow) rather
// than by Pager itself, so Pager stays ignorant of the randomized vs.
// original index-space distinction entirely.
func (p *Pager) Require(chunkIdx int, inWindow bool) (bool, error) {
	if !inWindow {
		return false, fmt.Errorf("page: chunk %d requested outside its paging window — invariant violation", chunkIdx)
	}

	ch := p.corpus.Chunks[chunkIdx]
	if ch.IsResident() {
		return false, nil
	}

	var lastErr error
	for attempt := 0; attempt <= maxReadRetries; attempt++ {
		if attempt > 0 {
			p.log.Event(diag.LevelDebug, "page-retry", fmt.Sprintf("chunk=%d attempt=%d", chunkIdx, attempt+1))
			p.sleep(retryBackoff(attempt))
		}

		residency, err := p.load(ch)
		if err == nil {
			ch.SetResidency(residency)
			p.log.Event(diag.LevelVerbose, "page-in", fmt.Sprintf("chunk=%d frames=%d", chunkIdx, ch.TotalFrames))
			return true, nil
		}

		var transient *TransientError
		if !errors.As(err, &transient) {
			ch.SetResidency(nil)
			return false, err
		}
		lastErr = err
	}

	ch.SetResidency(nil)
	return false, fmt.Errorf("page: chunk %d: exhausted %d retries: %w", chunkIdx, maxReadRetries, lastErr)
}

// Release implements spec §4.3: no-op if already non-resident, otherwise
// frees the frame matrix and lattice handles.
func (p *Pager) Release(chunkIdx int) {
	ch := p.corpus.Chunks[chunkIdx]
	if !ch.IsResident() {
		return
	}
	ch.SetResidency(nil)
	p.log.Event(diag.LevelVerbose, "page-out", fmt.Sprintf("chunk=%d", chunkIdx))
}

func (p *Pager) load(ch *corpus.Chunk) (*corpus.Residency, error) {
	frames := make([][]float32, ch.TotalFrames)

	var lattices []corpus.LatticeHandle

	// ref is the metadata every utterance in this chunk (and every chunk
	// loaded after it) is cross-checked against. If the pager has already
	// recorded global metadata from an earlier chunk, that's ref; otherwise
	// this chunk's own first utterance establishes it, and every utterance
	// after that — even within this same first-loaded chunk — is checked
	// against it, not silently overwritten.
	ref := p.info
	haveRef := p.haveInfo

	for i, u := range ch.Utterances {
		got, err := p.features.GetInfo(u.ArchivePath)
		if err != nil {
			return nil, err
		}
		if !haveRef {
			ref = got
			haveRef = true
		} else if got != ref {
			return nil, fmt.Errorf("page: %s: feature metadata %+v disagrees with corpus metadata %+v", u.ArchivePath, got, ref)
		}

		off := ch.UtteranceOffset(i)
		stripe := frames[off : off+u.NumFrames]
		for j := range stripe {
			stripe[j] = make([]float32, got.Dim)
		}
		if err := p.features.Read(u.ArchivePath, got, stripe); err != nil {
			return nil, err
		}
	}

	if !p.haveInfo {
		p.info = ref
		p.haveInfo = true
	}

	if p.lattices != nil {
		lattices = make([]corpus.LatticeHandle, len(ch.Utterances))
		for i, u := range ch.Utterances {
			if !p.lattices.HasLattice(u.Key) {
				continue
			}
			l, err := p.lattices.GetLattice(u.Key, u.NumFrames)
			if err != nil {
				return nil, err
			}
			lattices[i] = l
		}
	}

	return &corpus.Residency{Frames: frames, Lattices: lattices}, nil
}

func retryBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 50 * time.Millisecond
}
