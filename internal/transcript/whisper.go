// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package transcript

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// whisperLine matches lines written by Whisper's verbose transcription, e.g.
// "[12.34s] So today we talk about H-1B".
var whisperLine = regexp.MustCompile(`^\[(\d+\.\d+)s\] (.+)$`)

// ParseWhisper extracts segments from Whisper text output. Lines that do not
// match the [N.NNs] prefix are skipped.
func ParseWhisper(data []byte) []Segment {
	var segments []Segment

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := whisperLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		start, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		segments = append(segments, Segment{
			StartTime: roundCentis(start),
			Text:      m[2],
		})
	}
	return segments
}
