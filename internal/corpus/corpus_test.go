package corpus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featureFiles(n int, framesPer int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("utt%03d=/data/utt%03d.feat[0,%d]", i, i, framesPer-1)
	}
	return out
}

func TestBuild_UnsupervisedMinimalCorpus(t *testing.T) {
	c, err := Build(BuildInput{FeatureFiles: featureFiles(3, 2)})
	require.NoError(t, err)
	assert.Equal(t, 6, c.TotalFrames())
	assert.Equal(t, 3, c.TotalUtterances())
	require.Len(t, c.Chunks, 1)
	assert.Equal(t, 6, c.Chunks[0].TotalFrames)

	for _, u := range c.Chunks[0].Utterances {
		assert.Equal(t, SentinelLabel, c.Labels[u.SentinelIndex()])
	}
}

func TestBuild_RejectsTooShortUtterances(t *testing.T) {
	files := []string{"a=/data/a.feat[0,0]"} // 1 frame, below MinFramesPerUtterance
	_, err := Build(BuildInput{FeatureFiles: files})
	assert.Error(t, err) // zero utterances accepted
}

func TestBuild_SkipsTooShortButKeepsRest(t *testing.T) {
	files := []string{
		"short=/data/short.feat[0,0]", // 1 frame: skipped
		"ok=/data/ok.feat[0,9]",       // 10 frames: kept
	}
	c, err := Build(BuildInput{FeatureFiles: files})
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalUtterances())
	assert.Equal(t, 10, c.TotalFrames())
}

func TestBuild_RequireLabelsRejectsUnlabeledWhenOverHalfMissing(t *testing.T) {
	files := featureFiles(4, 5)
	labels := map[string][]LabelSegment{
		"utt000": {{FirstFrame: 0, NumFrames: 5, ClassID: 0}},
	}
	_, err := Build(BuildInput{FeatureFiles: files, Labels: labels, RequireLabels: true, UDim: 2})
	assert.Error(t, err)
}

func TestBuild_RequireLabelsAcceptsWhenMostAreLabeled(t *testing.T) {
	files := featureFiles(4, 5)
	labels := map[string][]LabelSegment{
		"utt000": {{FirstFrame: 0, NumFrames: 5, ClassID: 0}},
		"utt001": {{FirstFrame: 0, NumFrames: 5, ClassID: 1}},
		"utt002": {{FirstFrame: 0, NumFrames: 5, ClassID: 0}},
	}
	c, err := Build(BuildInput{FeatureFiles: files, Labels: labels, RequireLabels: true, UDim: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalUtterances())
}

func TestBuild_LabelSegmentGapSkipsTheUtterance(t *testing.T) {
	files := []string{
		"utt000=/data/utt000.feat[0,9]", // 10 frames, gapped labels: skipped
		"utt001=/data/utt001.feat[0,9]", // 10 frames, full coverage: kept
	}
	labels := map[string][]LabelSegment{
		"utt000": {{FirstFrame: 0, NumFrames: 5, ClassID: 0}}, // leaves frames 5-9 uncovered
		"utt001": {{FirstFrame: 0, NumFrames: 10, ClassID: 0}},
	}
	c, err := Build(BuildInput{FeatureFiles: files, Labels: labels, UDim: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalUtterances())
}

func TestBuild_ClassIDOutOfRangeIsRejected(t *testing.T) {
	files := []string{"utt000=/data/utt000.feat[0,9]"}
	labels := map[string][]LabelSegment{
		"utt000": {{FirstFrame: 0, NumFrames: 10, ClassID: 99}},
	}
	_, err := Build(BuildInput{FeatureFiles: files, Labels: labels, UDim: 2})
	assert.Error(t, err) // single utterance, rejected for bad labels -> no utterances accepted
}

func TestBuild_ChunkingRespectsTargetFramesPerChunk(t *testing.T) {
	n := 5
	framesPer := TargetFramesPerChunk/2 + 1 // two utterances overflow a chunk
	c, err := Build(BuildInput{FeatureFiles: featureFiles(n, framesPer)})
	require.NoError(t, err)
	assert.Greater(t, len(c.Chunks), 1)
	for _, ch := range c.Chunks {
		assert.LessOrEqual(t, len(ch.Utterances), 2)
	}
}

func TestBuild_UnitCountsAccumulatesPerClassOccurrences(t *testing.T) {
	files := []string{"utt000=/data/utt000.feat[0,9]"}
	labels := map[string][]LabelSegment{
		"utt000": {
			{FirstFrame: 0, NumFrames: 4, ClassID: 0},
			{FirstFrame: 4, NumFrames: 6, ClassID: 1},
		},
	}
	c, err := Build(BuildInput{FeatureFiles: files, Labels: labels, UDim: 2})
	require.NoError(t, err)
	require.Len(t, c.UnitCounts(), 2)
	assert.Equal(t, int64(4), c.UnitCounts()[0])
	assert.Equal(t, int64(6), c.UnitCounts()[1])
}

func TestBuild_NoInputsIsRejected(t *testing.T) {
	_, err := Build(BuildInput{})
	assert.Error(t, err)
}
