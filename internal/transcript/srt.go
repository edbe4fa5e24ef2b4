// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package transcript

import (
	"strconv"
	"strings"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// ParseSRT extracts one segment per subtitle cue:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
//
// Multi-line cue text is joined with a single space.
func ParseSRT(data []byte) ([]Segment, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	var (
		segments []Segment
		start    = -1.0
		lines    []string
	)

	flush := func() {
		if start >= 0 && len(lines) > 0 {
			segments = append(segments, Segment{StartTime: roundCentis(start), Text: strings.Join(lines, " ")})
		}
		start = -1
		lines = lines[:0]
	}

	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			from, _, _ := strings.Cut(line, "-->")
			secs, err := parseSRTTime(strings.TrimSpace(from))
			if err != nil {
				return nil, chatboterr.Wrap(err, chatboterr.CodeTranscriptParseInvalid,
					"invalid srt timing line", chatboterr.Field("line", n+1))
			}
			start = secs
		case start < 0 && isDigits(line):
			// cue sequence number
		case start >= 0:
			lines = append(lines, line)
		}
	}
	flush()

	return segments, nil
}

// parseSRTTime parses HH:MM:SS,mmm (a '.' separator is also accepted).
func parseSRTTime(s string) (float64, error) {
	s = strings.Replace(s, ",", ".", 1)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, chatboterr.Errorf(chatboterr.CodeTranscriptParseInvalid, "malformed timestamp %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, chatboterr.Errorf(chatboterr.CodeTranscriptParseInvalid, "malformed hours in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, chatboterr.Errorf(chatboterr.CodeTranscriptParseInvalid, "malformed minutes in %q", s)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, chatboterr.Errorf(chatboterr.CodeTranscriptParseInvalid, "malformed seconds in %q", s)
	}
	return float64(h*3600+m*60) + sec, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
