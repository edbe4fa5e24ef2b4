// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package transcript loads, converts, and validates timestamped transcript
// segments.
package transcript

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// Segment is a timestamped span of transcript text.
type Segment struct {
	StartTime float64 `json:"start_time"`
	Text      string  `json:"text"`
	SourceRef string  `json:"video_link,omitempty"`
}

// Format identifies a transcript encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatWhisper Format = "whisper"
	FormatSRT     Format = "srt"
)

// DetectFormat picks a format from the file extension. Unknown extensions
// are treated as structured JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return FormatWhisper
	case ".srt":
		return FormatSRT
	default:
		return FormatJSON
	}
}

// Load reads the transcript at path, parses it according to its extension,
// and validates the result.
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chatboterr.New(chatboterr.CodeTranscriptReadFailure,
				"transcript file not found", chatboterr.FieldPath(path))
		}
		return nil, chatboterr.Wrap(err, chatboterr.CodeTranscriptReadFailure,
			"reading transcript", chatboterr.FieldPath(path))
	}

	segments, err := Parse(DetectFormat(path), data)
	if err != nil {
		return nil, chatboterr.With(err, chatboterr.FieldPath(path))
	}
	if err := Validate(segments); err != nil {
		return nil, chatboterr.With(err, chatboterr.FieldPath(path))
	}
	return segments, nil
}

// Parse decodes data in the given format.
func Parse(format Format, data []byte) ([]Segment, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(data)
	case FormatWhisper:
		return ParseWhisper(data), nil
	case FormatSRT:
		return ParseSRT(data)
	default:
		return nil, chatboterr.Errorf(chatboterr.CodeTranscriptParseInvalid, "unknown transcript format %q", format)
	}
}

// ParseJSON decodes a JSON array of {start_time, text[, video_link]} objects.
func ParseJSON(data []byte) ([]Segment, error) {
	var segments []Segment
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&segments); err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeTranscriptParseInvalid, "decoding transcript json")
	}
	return segments, nil
}

// MaxStartTime bounds start_time to values that fit a playback offset in
// whole seconds.
const MaxStartTime = math.MaxInt32

// Validate checks that start times are finite, in [0, MaxStartTime] and
// ascending.
func Validate(segments []Segment) error {
	prev := 0.0
	for i, seg := range segments {
		if math.IsNaN(seg.StartTime) || seg.StartTime < 0 || seg.StartTime > MaxStartTime {
			return chatboterr.New(chatboterr.CodeTranscriptInvalidInput,
				"start_time must be a non-negative number of seconds within range",
				chatboterr.Field("segment", i), chatboterr.Field("start_time", seg.StartTime))
		}
		if seg.StartTime < prev {
			return chatboterr.New(chatboterr.CodeTranscriptInvalidInput,
				"segments must be ordered by start_time",
				chatboterr.Field("segment", i), chatboterr.Field("start_time", seg.StartTime))
		}
		prev = seg.StartTime
	}
	return nil
}

// WithSourceRef returns a copy of segments where empty source references are
// replaced by ref.
func WithSourceRef(segments []Segment, ref string) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		if seg.SourceRef == "" {
			seg.SourceRef = ref
		}
		out[i] = seg
	}
	return out
}

// WriteJSON writes segments as an indented JSON array, creating parent
// directories as needed.
func WriteJSON(path string, segments []Segment) error {
	if segments == nil {
		segments = []Segment{}
	}

	data, err := json.MarshalIndent(segments, "", "    ")
	if err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeTranscriptWriteFailure, "encoding transcript")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeTranscriptWriteFailure,
			"creating output directory", chatboterr.FieldPath(path))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeTranscriptWriteFailure,
			"writing transcript", chatboterr.FieldPath(path))
	}
	return nil
}

// StructuredPath maps a raw transcript path such as
// data/transcripts/march_11.txt to data/structured_transcripts/march_11.json.
func StructuredPath(raw string) string {
	dir, file := filepath.Split(raw)
	file = strings.TrimSuffix(file, filepath.Ext(file)) + ".json"

	dir = filepath.Clean(dir)
	if filepath.Base(dir) == "transcripts" {
		dir = filepath.Join(filepath.Dir(dir), "structured_transcripts")
	}
	return filepath.Join(dir, file)
}

func roundCentis(v float64) float64 {
	return math.Round(v*100) / 100
}
