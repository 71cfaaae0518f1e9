// Package config loads the YAML manifest describing one minibatch source
// (spec §6's constructor inputs), the same yaml.v3-into-a-plain-struct
// pattern as the teacher's deviceid.go uses for tocalls.yaml.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk description of a minibatch source. FeatureFiles
// and LabelsPath are script files in the formats corpus.ParseArchivePath
// and LoadLabels expect; everything else maps directly onto spec §6's
// constructor parameters.
type Manifest struct {
	FeatureFiles []string `yaml:"feature_files"`
	LabelsPath   string   `yaml:"labels_path"`

	UDim int `yaml:"u_dim"`
	VDim int `yaml:"v_dim"` // informational only; the augmentor derives the real VDim

	LeftContext  int `yaml:"left_context"`
	RightContext int `yaml:"right_context"`

	RandomizationRange int  `yaml:"randomization_range"`
	FrameMode          bool `yaml:"frame_mode"`

	RequireLabels  bool `yaml:"require_labels"`
	RequireLattice bool `yaml:"require_lattice"`

	LatticeDir      string `yaml:"lattice_dir"`      // optional
	WordTranscripts string `yaml:"word_transcripts"` // optional, path to a key\ttranscript file

	LogPattern string `yaml:"log_pattern"` // strftime pattern, e.g. "minibatch-%Y%m%d.log"
	Verbosity  string `yaml:"verbosity"`   // "silent" | "info" | "verbose" | "debug"
}

// Load reads and validates a manifest from path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening manifest %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: reading manifest %q: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing manifest %q: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("config: manifest %q: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.FeatureFiles) == 0 {
		return fmt.Errorf("feature_files must not be empty")
	}
	if m.RandomizationRange <= 0 {
		return fmt.Errorf("randomization_range must be > 0")
	}
	if m.LeftContext < 0 || m.RightContext < 0 {
		return fmt.Errorf("left_context/right_context must be >= 0")
	}
	if m.UDim < 0 {
		return fmt.Errorf("u_dim must be >= 0")
	}
	return nil
}
