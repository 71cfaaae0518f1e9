package minibatch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/readers"
)

func buildSource(t *testing.T, frameMode bool) *Source {
	t.Helper()
	files := []string{
		"u0=/data/u0.feat[0,9]",
		"u1=/data/u1.feat[0,9]",
		"u2=/data/u2.feat[0,9]",
	}
	labels := map[string][]corpus.LabelSegment{
		"u0": {{FirstFrame: 0, NumFrames: 10, ClassID: 0}},
		"u1": {{FirstFrame: 0, NumFrames: 10, ClassID: 1}},
		"u2": {{FirstFrame: 0, NumFrames: 10, ClassID: 0}},
	}

	features := readers.NewMemorySource(readers.FeatureInfo{Kind: "MFCC", Dim: 4})
	for _, path := range []string{"/data/u0.feat", "/data/u1.feat", "/data/u2.feat"} {
		frames := make([][]float32, 10)
		for i := range frames {
			frames[i] = make([]float32, 4)
		}
		features.Put(path, frames)
	}

	src, err := New(Config{
		FeatureFiles:       files,
		Labels:             labels,
		UDim:               2,
		Features:           features,
		RandomizationRange: 100,
		FrameMode:          frameMode,
		Log:                nil,
	})
	require.NoError(t, err)
	return src
}

func TestSource_TotalFramesAndUnitCounts(t *testing.T) {
	src := buildSource(t, false)
	assert.Equal(t, 30, src.TotalFrames())

	counts := src.UnitCounts()
	require.Len(t, counts, 2)
	assert.Equal(t, int64(20), counts[0])
	assert.Equal(t, int64(10), counts[1])
}

func TestSource_GetBatchUtteranceMode(t *testing.T) {
	src := buildSource(t, false)
	g, err := src.FirstValidGlobalTS(0)
	require.NoError(t, err)

	result, err := src.GetBatch(g, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, result.UIDs)
	assert.NotEmpty(t, result.Feat)
}

func TestSource_GetBatchRejectsNonPositiveFramesRequested(t *testing.T) {
	src := buildSource(t, false)
	_, err := src.GetBatch(0, 0)
	assert.Error(t, err)
}

func TestSource_SetVerbosityIsSafeWithNilLogger(t *testing.T) {
	src := buildSource(t, true)
	assert.NotPanics(t, func() {
		src.SetVerbosity(diag.LevelDebug)
	})
}

func TestSource_FrameModeWalksFullSweep(t *testing.T) {
	src := buildSource(t, true)
	total := src.TotalFrames()

	seen := 0
	g := 0
	for g < total {
		result, err := src.GetBatch(g, 7)
		require.NoError(t, err)
		seen += len(result.UIDs)
		g += len(result.UIDs)
	}
	assert.Equal(t, total, seen)
}

func TestNew_RejectsBadRandomizationRange(t *testing.T) {
	files := []string{fmt.Sprintf("u0=/data/u0.feat[0,%d]", 99)} // 100 frames
	features := readers.NewMemorySource(readers.FeatureInfo{Kind: "MFCC", Dim: 1})
	_, err := New(Config{
		FeatureFiles:       files,
		Features:           features,
		RandomizationRange: 1,
	})
	assert.Error(t, err)
}
