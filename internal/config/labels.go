package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/doismellburning/minibatch/internal/corpus"
	"github.com/doismellburning/minibatch/internal/readers"
)

// LoadLabels reads a label map from path. Each non-blank, non-comment line
// is one utterance:
//
//	uttkey first,num,class first,num,class ...
//
// one whitespace-separated (first,num,class) triple per label segment
// (spec §4.1's "ordered list of (first_frame, num_frames, class_id)").
func LoadLabels(path string) (map[string][]corpus.LabelSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening labels file %q: %w", path, err)
	}
	defer f.Close()

	out := make(map[string][]corpus.LabelSegment)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		key := fields[0]
		segs := make([]corpus.LabelSegment, 0, len(fields)-1)
		for _, tok := range fields[1:] {
			seg, err := parseLabelSegment(tok)
			if err != nil {
				return nil, fmt.Errorf("config: labels file %q line %d: %w", path, lineNo, err)
			}
			segs = append(segs, seg)
		}
		out[key] = segs
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading labels file %q: %w", path, err)
	}
	return out, nil
}

func parseLabelSegment(tok string) (corpus.LabelSegment, error) {
	parts := strings.Split(tok, ",")
	if len(parts) != 3 {
		return corpus.LabelSegment{}, fmt.Errorf("malformed label segment %q, want first,num,class", tok)
	}
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return corpus.LabelSegment{}, fmt.Errorf("segment %q: %w", tok, err)
	}
	num, err := strconv.Atoi(parts[1])
	if err != nil {
		return corpus.LabelSegment{}, fmt.Errorf("segment %q: %w", tok, err)
	}
	class, err := strconv.Atoi(parts[2])
	if err != nil {
		return corpus.LabelSegment{}, fmt.Errorf("segment %q: %w", tok, err)
	}
	return corpus.LabelSegment{FirstFrame: first, NumFrames: num, ClassID: int32(class)}, nil
}

// LoadTranscripts reads a "key\ttranscript" file into a MapTranscripts.
func LoadTranscripts(path string) (readers.MapTranscripts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening transcripts file %q: %w", path, err)
	}
	defer f.Close()

	out := make(readers.MapTranscripts)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.IndexByte(line, '\t')
		if idx < 0 {
			return nil, fmt.Errorf("config: transcripts file %q line %d: missing tab separator", path, lineNo)
		}
		out[line[:idx]] = line[idx+1:]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading transcripts file %q: %w", path, err)
	}
	return out, nil
}
