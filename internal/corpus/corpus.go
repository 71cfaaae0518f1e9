package corpus

import (
	"fmt"

	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/readers"
)

// LabelSegment is one run of identical-class frames within an utterance's
// labels, as supplied by the external label map (spec §4.1: "ordered list
// of (first_frame, num_frames, class_id)").
type LabelSegment struct {
	FirstFrame int
	NumFrames  int
	ClassID    int32
}

// BuildInput is everything corpus.Build needs. FeatureFiles entries are
// parsed with ParseArchivePath. Labels and Lattices are nil for an
// unsupervised / lattice-free corpus.
type BuildInput struct {
	FeatureFiles []string
	Labels       map[string][]LabelSegment
	Lattices     readers.LatticeSource
	UDim         int // number of output classes; class ids must be < UDim. 0 disables the check.

	RequireLabels  bool // spec §4.1(c): reject utterances with no label entry
	RequireLattice bool // spec §4.1(d): reject utterances with no lattice

	Log *diag.Logger
}

// Corpus is the fixed, ordered list of chunks produced from BuildInput,
// plus the flat per-frame label array shared by every utterance, plus a
// per-class occurrence count for prior estimation (spec §3, §6
// unit_counts).
type Corpus struct {
	Chunks      []*Chunk
	Labels      []int32
	ClassCounts []int64

	totalFrames     int
	totalUtterances int
	maxChunkFrames  int
}

// TotalFrames returns the sum of every chunk's TotalFrames — the length
// of one sweep's timeline.
func (c *Corpus) TotalFrames() int { return c.totalFrames }

// TotalUtterances returns the number of utterances across all chunks.
func (c *Corpus) TotalUtterances() int { return c.totalUtterances }

// MaxChunkFrames returns the largest TotalFrames among the corpus's
// chunks, used by the randomizer to validate randomization_range (spec
// §9 open question).
func (c *Corpus) MaxChunkFrames() int { return c.maxChunkFrames }

// UnitCounts returns the per-class occurrence vector accumulated during
// construction (spec §6 unit_counts()).
func (c *Corpus) UnitCounts() []int64 { return c.ClassCounts }

type skipCounts struct {
	tooShort    int
	tooLong     int
	missingLbl  int
	missingLat  int
	durationErr int
	classIDErr  int
	total       int
	accepted    int
}

// Build implements spec §4.1 corpus construction: parse every input path,
// reject or skip per-utterance per the rules below, pack accepted
// utterances into chunks in input order, and fail the whole construction
// if too much of the input was unusable.
func Build(in BuildInput) (*Corpus, error) {
	c := &Corpus{}
	cur := newChunk()
	var sk skipCounts

	for _, entry := range in.FeatureFiles {
		sk.total++

		parsed, err := ParseArchivePath(entry)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}

		if parsed.NumFrames < MinFramesPerUtterance {
			sk.tooShort++
			in.Log.WarnCapped("utterance-too-short", fmt.Sprintf("%s: %d frames", parsed.Key, parsed.NumFrames))
			continue
		}
		if parsed.NumFrames > MaxFramesPerUtterance {
			sk.tooLong++
			in.Log.WarnCapped("utterance-too-long", fmt.Sprintf("%s: %d frames exceeds cap %d", parsed.Key, parsed.NumFrames, MaxFramesPerUtterance))
			continue
		}

		segs, haveLabels := in.Labels[parsed.Key]
		if in.RequireLabels && !haveLabels {
			sk.missingLbl++
			in.Log.WarnCapped("missing-label", parsed.Key)
			continue
		}
		if in.Lattices != nil && in.RequireLattice && !in.Lattices.HasLattice(parsed.Key) {
			sk.missingLat++
			in.Log.WarnCapped("missing-lattice", parsed.Key)
			continue
		}

		var frameLabels []int32
		if haveLabels {
			frameLabels, err = expandLabelSegments(segs, parsed.NumFrames, in.UDim)
			if err != nil {
				sk.durationErr++
				in.Log.WarnCapped("label-duration-mismatch", fmt.Sprintf("%s: %v", parsed.Key, err))
				continue
			}
		}

		labelOffset := len(c.Labels)
		if frameLabels != nil {
			c.Labels = append(c.Labels, frameLabels...)
			c.accumulateClassCounts(frameLabels, in.UDim)
		} else {
			// Unsupervised utterance: still reserve label slots so every
			// utterance's sentinel convention holds uniformly.
			for i := 0; i < parsed.NumFrames; i++ {
				c.Labels = append(c.Labels, SentinelLabel)
			}
		}
		c.Labels = append(c.Labels, SentinelLabel)

		u, err := newUtterance(parsed.Path, parsed.Key, parsed.NumFrames, labelOffset)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}

		if cur.wouldOverflow(u.NumFrames) {
			c.Chunks = append(c.Chunks, cur)
			if cur.TotalFrames > c.maxChunkFrames {
				c.maxChunkFrames = cur.TotalFrames
			}
			cur = newChunk()
		}
		if err := cur.append(u); err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}

		c.totalFrames += u.NumFrames
		c.totalUtterances++
		sk.accepted++
	}

	if len(cur.Utterances) > 0 {
		c.Chunks = append(c.Chunks, cur)
		if cur.TotalFrames > c.maxChunkFrames {
			c.maxChunkFrames = cur.TotalFrames
		}
	}

	if sk.total > 0 && (in.RequireLabels || in.RequireLattice) {
		missing := sk.missingLbl + sk.missingLat
		if missing*2 > sk.total {
			return nil, fmt.Errorf("corpus: construction rejected: %d/%d inputs missing required labels/lattices (>50%%)", missing, sk.total)
		}
	}
	if sk.accepted == 0 {
		return nil, fmt.Errorf("corpus: construction rejected: no utterances accepted out of %d inputs", sk.total)
	}

	return c, nil
}

// expandLabelSegments flattens the (first_frame, num_frames, class_id)
// segment list into one class id per frame, failing if the segments
// don't exactly cover [0, numFrames) or if any class id is out of range.
func expandLabelSegments(segs []LabelSegment, numFrames int, uDim int) ([]int32, error) {
	out := make([]int32, numFrames)
	for i := range out {
		out[i] = SentinelLabel
	}
	for _, s := range segs {
		if uDim > 0 && (s.ClassID < 0 || int(s.ClassID) >= uDim) {
			return nil, fmt.Errorf("class id %d out of range [0,%d)", s.ClassID, uDim)
		}
		if s.FirstFrame < 0 || s.FirstFrame+s.NumFrames > numFrames {
			return nil, fmt.Errorf("label segment [%d,+%d) out of range for %d frames", s.FirstFrame, s.NumFrames, numFrames)
		}
		for i := s.FirstFrame; i < s.FirstFrame+s.NumFrames; i++ {
			out[i] = s.ClassID
		}
	}
	for i, v := range out {
		if v == SentinelLabel {
			return nil, fmt.Errorf("frame %d has no label segment covering it", i)
		}
	}
	return out, nil
}

func (c *Corpus) accumulateClassCounts(frameLabels []int32, uDim int) {
	if uDim <= 0 {
		return
	}
	if len(c.ClassCounts) < uDim {
		grown := make([]int64, uDim)
		copy(grown, c.ClassCounts)
		c.ClassCounts = grown
	}
	for _, v := range frameLabels {
		if v >= 0 && int(v) < uDim {
			c.ClassCounts[v]++
		}
	}
}
