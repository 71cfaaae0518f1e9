package readers

import "fmt"

// MemorySource is a FeatureReader backed by an in-memory map from archive
// path to a pre-generated frame matrix. It exists for tests and the
// cmd/batchsource demo path, where there is no real feature archive
// format to decode — production use is expected to supply a real
// FeatureReader (HTK, Kaldi ark, whatever the deployment uses).
type MemorySource struct {
	Info   FeatureInfo
	Frames map[string][][]float32 // path -> Dim x numFrames
}

// NewMemorySource builds an empty in-memory feature source reporting info
// for every archive it serves.
func NewMemorySource(info FeatureInfo) *MemorySource {
	return &MemorySource{Info: info, Frames: make(map[string][][]float32)}
}

// Put registers the frame matrix for path.
func (m *MemorySource) Put(path string, frames [][]float32) {
	m.Frames[path] = frames
}

func (m *MemorySource) GetInfo(path string) (FeatureInfo, error) {
	if _, ok := m.Frames[path]; !ok {
		return FeatureInfo{}, fmt.Errorf("readers: no synthetic frames registered for %q", path)
	}
	return m.Info, nil
}

func (m *MemorySource) Read(path string, expected FeatureInfo, out [][]float32) error {
	frames, ok := m.Frames[path]
	if !ok {
		return fmt.Errorf("readers: no synthetic frames registered for %q", path)
	}
	if expected != m.Info {
		return &ErrFeatureMismatch{Path: path, Expected: expected, Got: m.Info}
	}
	if len(out) != len(frames) {
		return fmt.Errorf("readers: %q: requested %d frames, have %d", path, len(out), len(frames))
	}
	for i := range frames {
		copy(out[i], frames[i])
	}
	return nil
}
