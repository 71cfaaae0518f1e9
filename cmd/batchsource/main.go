// Command batchsource drives a minibatch.Source from a YAML manifest,
// walking global_ts forward one get_batch call at a time and reporting
// what it produces. It exists as a demonstration harness and smoke test
// for the library, not a production trainer integration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/doismellburning/minibatch"
	"github.com/doismellburning/minibatch/internal/config"
	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/diag"
	"github.com/doismellburning/minibatch/internal/readers"
)

func main() {
	manifestPath := pflag.StringP("manifest", "m", "", "Path to the source manifest YAML file (required)")
	framesRequested := pflag.IntP("frames", "f", 256, "frames_requested passed to each get_batch call")
	sweeps := pflag.IntP("sweeps", "s", 1, "Number of full sweeps to walk before stopping")
	verbosity := pflag.StringP("verbosity", "v", "info", "Log verbosity: silent, info, verbose, debug")
	help := pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - walk a minibatch source defined by a manifest.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help || *manifestPath == "" {
		pflag.Usage()
		if *manifestPath == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(*manifestPath, *framesRequested, *sweeps, *verbosity); err != nil {
		fmt.Fprintf(os.Stderr, "batchsource: %s\n", err)
		os.Exit(1)
	}
}

func run(manifestPath string, framesRequested, sweeps int, verbosity string) error {
	m, err := config.Load(manifestPath)
	if err != nil {
		return err
	}

	level := parseVerbosity(verbosity)
	logPattern := m.LogPattern
	if logPattern == "" {
		logPattern = "batchsource-%Y%m%d.log"
	}
	log, err := diag.NewLogger(logPattern, level)
	if err != nil {
		return err
	}
	defer log.Close()

	labels, err := loadLabels(m)
	if err != nil {
		return err
	}
	transcripts, err := loadTranscripts(m)
	if err != nil {
		return err
	}

	features, err := syntheticFeatureReader(m)
	if err != nil {
		return err
	}

	src, err := minibatch.New(minibatch.Config{
		FeatureFiles:       m.FeatureFiles,
		Labels:             labels,
		UDim:               m.UDim,
		RequireLabels:      m.RequireLabels,
		RequireLattice:     m.RequireLattice,
		Features:           features,
		Augmentor:          readers.NeighborStack{Left: m.LeftContext, Right: m.RightContext},
		Transcripts:        transcripts,
		RandomizationRange: m.RandomizationRange,
		FrameMode:          m.FrameMode,
		Log:                log,
	})
	if err != nil {
		return err
	}

	total := src.TotalFrames()
	fmt.Printf("source has %d frames/sweep, walking %d sweep(s)\n", total, sweeps)

	globalTS := 0
	for globalTS < sweeps*total {
		start, err := src.FirstValidGlobalTS(globalTS)
		if err != nil {
			return err
		}
		result, err := src.GetBatch(start, framesRequested)
		if err != nil {
			return err
		}
		fmt.Printf("global_ts=%d frames=%d paged_in=%v\n", start, len(result.UIDs), result.PagedIn)
		globalTS = start + len(result.UIDs)
	}

	return nil
}

func parseVerbosity(s string) diag.Level {
	switch s {
	case "silent":
		return diag.LevelSilent
	case "verbose":
		return diag.LevelVerbose
	case "debug":
		return diag.LevelDebug
	default:
		return diag.LevelInfo
	}
}

func loadLabels(m *config.Manifest) (map[string][]corpus.LabelSegment, error) {
	if m.LabelsPath == "" {
		return nil, nil
	}
	return config.LoadLabels(m.LabelsPath)
}

func loadTranscripts(m *config.Manifest) (readers.WordTranscripts, error) {
	if m.WordTranscripts == "" {
		return nil, nil
	}
	return config.LoadTranscripts(m.WordTranscripts)
}

// syntheticFeatureReader builds a MemorySource populated with zero-valued
// frames for every archive path named in the manifest, sized per
// corpus.ParseArchivePath's frame count. There is no real feature archive
// codec here — this command exists to demonstrate and smoke-test the
// library's control flow, not to decode production feature files.
func syntheticFeatureReader(m *config.Manifest) (*readers.MemorySource, error) {
	src := readers.NewMemorySource(readers.FeatureInfo{Kind: "SYNTH", Dim: 40, SampPeriod: 100000})
	for _, entry := range m.FeatureFiles {
		parsed, err := corpus.ParseArchivePath(entry)
		if err != nil {
			return nil, err
		}
		frames := make([][]float32, parsed.NumFrames)
		for i := range frames {
			frames[i] = make([]float32, src.Info.Dim)
		}
		src.Put(parsed.Path, frames)
	}
	return src, nil
}
