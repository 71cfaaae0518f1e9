// Package minibatch assembles randomized, memory-bounded training
// minibatches from an acoustic corpus too large to hold resident in full.
// It wires together internal/corpus (construction), internal/randomize
// (two-level randomization), internal/page (chunk residency) and
// internal/batch (request assembly) behind the single public operation
// set spec §6 calls for.
package minibatch

import (
	"fmt"

	"github.com/doismellburning/minibatch/internal/batch"
	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/page"
	"github.com/doismellburning/minibatch/internal/randomize"
	"github.com/doismellburning/minibatch/internal/readers"
)

// Config is everything needed to build a Source, corresponding directly
// to spec §6's constructor parameters.
type Config struct {
	FeatureFiles []string
	Labels       map[string][]corpus.LabelSegment
	UDim         int

	RequireLabels  bool
	RequireLattice bool

	Features    readers.FeatureReader
	Lattices    readers.LatticeSource   // optional
	Augmentor   readers.Augmentor       // if nil, defaults to NeighborStack{0,0} (no context window)
	Transcripts readers.WordTranscripts // optional

	RandomizationRange int
	FrameMode          bool

	Log *diag.Logger // if nil, diagnostics are silently dropped
}

// Source is a constructed minibatch source: the one long-lived object a
// training loop holds and repeatedly calls GetBatch on.
type Source struct {
	corpus *corpus.Corpus
	rnd    *randomize.Randomizer
	pager  *page.Pager
	asm    *batch.Assembler
	log    *diag.Logger
}

// New builds a Source from cfg: constructs the corpus, validates and
// builds the randomizer, and wires the pager and assembler around them.
func New(cfg Config) (*Source, error) {
	c, err := corpus.Build(corpus.BuildInput{
		FeatureFiles:   cfg.FeatureFiles,
		Labels:         cfg.Labels,
		Lattices:       cfg.Lattices,
		UDim:           cfg.UDim,
		RequireLabels:  cfg.RequireLabels,
		RequireLattice: cfg.RequireLattice,
		Log:            cfg.Log,
	})
	if err != nil {
		return nil, err
	}

	rnd, err := randomize.New(c, cfg.RandomizationRange, cfg.FrameMode, cfg.Log)
	if err != nil {
		return nil, err
	}

	pager := page.New(c, cfg.Features, cfg.Lattices, cfg.Log)

	aug := cfg.Augmentor
	if aug == nil {
		aug = readers.NeighborStack{}
	}

	asm := batch.New(c, rnd, pager, aug, cfg.Transcripts, cfg.Log)

	return &Source{corpus: c, rnd: rnd, pager: pager, asm: asm, log: cfg.Log}, nil
}

// GetBatch implements spec §6's get_batch.
func (s *Source) GetBatch(globalTS, framesRequested int) (*batch.Result, error) {
	if framesRequested <= 0 {
		return nil, fmt.Errorf("minibatch: frames_requested must be > 0, got %d", framesRequested)
	}
	return s.asm.GetBatch(globalTS, framesRequested)
}

// FirstValidGlobalTS implements spec §6's first_valid_global_ts.
func (s *Source) FirstValidGlobalTS(globalTS int) (int, error) {
	return s.asm.FirstValidGlobalTS(globalTS)
}

// TotalFrames implements spec §6's total_frames.
func (s *Source) TotalFrames() int { return s.corpus.TotalFrames() }

// UnitCounts implements spec §6's unit_counts.
func (s *Source) UnitCounts() []int64 { return s.corpus.UnitCounts() }

// SetVerbosity implements spec §6's set_verbosity.
func (s *Source) SetVerbosity(level diag.Level) { s.log.SetVerbosity(level) }
