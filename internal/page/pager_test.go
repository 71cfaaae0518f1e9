package page

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/readers"
)

func buildCorpusWithFeatures(t *testing.T) (*corpus.Corpus, *readers.MemorySource) {
	t.Helper()
	files := []string{
		"u0=/data/u0.feat[0,9]",
		"u1=/data/u1.feat[0,9]",
	}
	c, err := corpus.Build(corpus.BuildInput{FeatureFiles: files})
	require.NoError(t, err)

	src := readers.NewMemorySource(readers.FeatureInfo{Kind: "MFCC", Dim: 3, SampPeriod: 100000})
	src.Put("/data/u0.feat", make([][]float32, 10))
	src.Put("/data/u1.feat", make([][]float32, 10))
	for _, p := range []string{"/data/u0.feat", "/data/u1.feat"} {
		frames := src.Frames[p]
		for i := range frames {
			frames[i] = []float32{1, 2, 3}
		}
	}
	return c, src
}

func TestPager_RequireOutsideWindowFails(t *testing.T) {
	c, src := buildCorpusWithFeatures(t)
	p := New(c, src, nil, nil)

	_, err := p.Require(0, false)
	assert.Error(t, err)
	assert.False(t, c.Chunks[0].IsResident())
}

func TestPager_RequireLoadsOnceAndNoOpsAfter(t *testing.T) {
	c, src := buildCorpusWithFeatures(t)
	p := New(c, src, nil, nil)

	did, err := p.Require(0, true)
	require.NoError(t, err)
	assert.True(t, did)
	assert.True(t, c.Chunks[0].IsResident())

	did, err = p.Require(0, true)
	require.NoError(t, err)
	assert.False(t, did, "second Require on an already-resident chunk must no-op")
}

func TestPager_ReleaseEvicts(t *testing.T) {
	c, src := buildCorpusWithFeatures(t)
	p := New(c, src, nil, nil)

	_, err := p.Require(0, true)
	require.NoError(t, err)

	p.Release(0)
	assert.False(t, c.Chunks[0].IsResident())

	p.Release(0) // no-op on already-non-resident chunk
	assert.False(t, c.Chunks[0].IsResident())
}

func TestPager_InfoDiscoveredFromFirstLoad(t *testing.T) {
	c, src := buildCorpusWithFeatures(t)
	p := New(c, src, nil, nil)

	_, ok := p.Info()
	assert.False(t, ok)

	_, err := p.Require(0, true)
	require.NoError(t, err)

	info, ok := p.Info()
	require.True(t, ok)
	assert.Equal(t, src.Info, info)
}

// flakyReader fails with a TransientError a fixed number of times before
// succeeding, to exercise Require's retry loop (spec §7 kind 3).
type flakyReader struct {
	*readers.MemorySource
	failuresLeft int
}

func (f *flakyReader) GetInfo(path string) (readers.FeatureInfo, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return readers.FeatureInfo{}, &TransientError{Err: errors.New("simulated transient failure")}
	}
	return f.MemorySource.GetInfo(path)
}

func TestPager_RetriesTransientFailures(t *testing.T) {
	c, src := buildCorpusWithFeatures(t)
	flaky := &flakyReader{MemorySource: src, failuresLeft: 2}
	p := New(c, flaky, nil, nil)

	did, err := p.Require(0, true)
	require.NoError(t, err)
	assert.True(t, did)
}

func TestPager_ExhaustsRetriesAndLeavesNonResident(t *testing.T) {
	c, src := buildCorpusWithFeatures(t)
	flaky := &flakyReader{MemorySource: src, failuresLeft: maxReadRetries + 5}
	p := New(c, flaky, nil, nil)

	_, err := p.Require(0, true)
	assert.Error(t, err)
	assert.False(t, c.Chunks[0].IsResident())
}

// perPathReader reports a distinct FeatureInfo per archive path, to
// exercise the in-chunk metadata cross-check: two utterances in the same
// chunk whose first one establishes the reference and whose second one
// disagrees with it.
type perPathReader struct {
	info map[string]readers.FeatureInfo
}

func (p *perPathReader) GetInfo(path string) (readers.FeatureInfo, error) {
	info, ok := p.info[path]
	if !ok {
		return readers.FeatureInfo{}, fmt.Errorf("perPathReader: no info for %q", path)
	}
	return info, nil
}

func (p *perPathReader) Read(path string, expected readers.FeatureInfo, out [][]float32) error {
	for i := range out {
		out[i] = make([]float32, expected.Dim)
	}
	return nil
}

func TestPager_InChunkMetadataMismatchIsDetected(t *testing.T) {
	files := []string{
		"u0=/data/u0.feat[0,9]",
		"u1=/data/u1.feat[0,9]",
	}
	c, err := corpus.Build(corpus.BuildInput{FeatureFiles: files})
	require.NoError(t, err)
	require.Len(t, c.Chunks, 1, "both utterances must land in the same chunk for this test to be meaningful")
	require.Len(t, c.Chunks[0].Utterances, 2)

	reader := &perPathReader{info: map[string]readers.FeatureInfo{
		"/data/u0.feat": {Kind: "MFCC", Dim: 3, SampPeriod: 100000},
		"/data/u1.feat": {Kind: "FBANK", Dim: 3, SampPeriod: 100000}, // disagrees with u0's Kind
	}}
	p := New(c, reader, nil, nil)

	_, err = p.Require(0, true)
	assert.Error(t, err)
	assert.False(t, c.Chunks[0].IsResident())
}

func TestPager_NonTransientFailureIsNotRetried(t *testing.T) {
	c, _ := buildCorpusWithFeatures(t)
	failer := &failingReader{err: fmt.Errorf("permanent failure")}
	p := New(c, failer, nil, nil)

	_, err := p.Require(0, true)
	assert.Error(t, err)
	assert.Equal(t, 1, failer.calls, "a non-transient error must not be retried")
}

type failingReader struct {
	err   error
	calls int
}

func (f *failingReader) GetInfo(path string) (readers.FeatureInfo, error) {
	f.calls++
	return readers.FeatureInfo{}, f.err
}

func (f *failingReader) Read(path string, expected readers.FeatureInfo, out [][]float32) error {
	return f.err
}
