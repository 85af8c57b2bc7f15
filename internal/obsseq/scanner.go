package obsseq

import (
	"bufio"
	"io"
	"strings"
)

// obsMarker starts every record block. Matched as a substring, the same way
// the file is produced: the keyword shares its line with the sequence number.
const obsMarker = "OBS"

// defaultMaxMetadataLines bounds how many lines beyond the copies a single
// record may carry (linked-list line, obs_def metadata, location, kind, time,
// variance). Legitimate records stay far below it; hitting the bound means a
// truncated or malformed record.
const defaultMaxMetadataLines = 100

// lineReader yields trimmed lines with 1-based line numbers.
type lineReader struct {
	s    *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{s: s}
}

// next returns the next line, trimmed of surrounding whitespace. ok is false
// at end of input or on a read error; the error is reported separately.
func (lr *lineReader) next() (text string, ok bool, err error) {
	if !lr.s.Scan() {
		return "", false, lr.s.Err()
	}
	lr.line++
	return strings.TrimSpace(lr.s.Text()), true, nil
}

// block is one raw token group: the marker line plus every following line up
// to (exclusive) the next marker. Lines are contiguous in the source file,
// starting at line number start.
type block struct {
	start int
	lines []string
}

// lineNum returns the source line number of lines[i].
func (b *block) lineNum(i int) int {
	return b.start + i
}

// blockScanner partitions the record section of a file into one block per
// observation. It is a finite, non-restartable forward pass: block length is
// unknown up front, so the scanner detects a boundary by seeing the next
// record's marker line one line late and holds it over for the next call.
type blockScanner struct {
	lr       *lineReader
	maxLines int

	held     string
	heldLine int
	hasHeld  bool
	done     bool
}

func newBlockScanner(lr *lineReader, nCopies, maxMetadataLines int) *blockScanner {
	if maxMetadataLines <= 0 {
		maxMetadataLines = defaultMaxMetadataLines
	}
	return &blockScanner{lr: lr, maxLines: nCopies + maxMetadataLines}
}

// next returns the next block, or (nil, nil) when the input is exhausted.
// A trailing, possibly partial block at end of input is still returned;
// the decoder rejects it if it is incomplete.
func (s *blockScanner) next() (*block, error) {
	if s.done {
		return nil, nil
	}

	b, err := s.open()
	if b == nil || err != nil {
		return nil, err
	}

	for {
		text, ok, err := s.lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			s.done = true
			return b, nil
		}
		if strings.Contains(text, obsMarker) {
			s.held = text
			s.heldLine = s.lr.line
			s.hasHeld = true
			return b, nil
		}
		if len(b.lines)-1 >= s.maxLines {
			return nil, formatErrf(b.start, b.lines[0],
				"record longer than %d lines, truncated or malformed", s.maxLines)
		}
		b.lines = append(b.lines, text)
	}
}

// open starts a new block from the held marker line if one was carried over,
// otherwise skips forward to the next marker line.
func (s *blockScanner) open() (*block, error) {
	if s.hasHeld {
		s.hasHeld = false
		return &block{start: s.heldLine, lines: []string{s.held}}, nil
	}
	for {
		text, ok, err := s.lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			s.done = true
			return nil, nil
		}
		if strings.Contains(text, obsMarker) {
			return &block{start: s.lr.line, lines: []string{text}}, nil
		}
	}
}
