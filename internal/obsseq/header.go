package obsseq

import (
	"strconv"
	"strings"
)

// Positions of fixed header content.
const typeCountLine = 2 // 0-indexed header line holding the type-table size

// Header is the parsed preamble of an observation-sequence file.
type Header struct {
	// Lines holds the raw preamble, kept for provenance only.
	Lines []string
	// Types maps the numeric type code, as written in the file, to a
	// human-readable observation-type name.
	Types map[string]string
	// CopyNames lists the copy columns in file order, internal whitespace
	// replaced with underscores. Its length fixes how many numeric values
	// lead every record block.
	CopyNames []string
}

// parseHeader consumes lines up to (and including) the "first: ... last: ..."
// line, which marks the end of the preamble, and extracts the type table and
// copy names.
func parseHeader(lr *lineReader) (*Header, error) {
	var lines []string
	for {
		text, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, formatErrf(lr.line, "", "header never ends: no line with both %q and %q", "first:", "last:")
		}
		if strings.Contains(text, "first:") && strings.Contains(text, "last:") {
			break
		}
		lines = append(lines, text)
	}

	types, err := collectObsTypes(lines)
	if err != nil {
		return nil, err
	}
	copies, err := collectCopyNames(lines)
	if err != nil {
		return nil, err
	}

	return &Header{Lines: lines, Types: types, CopyNames: copies}, nil
}

// collectObsTypes builds the code → name table. The table size sits at a
// fixed header offset; each following entry is exactly "<code> <name>".
func collectObsTypes(header []string) (map[string]string, error) {
	if len(header) <= typeCountLine {
		return nil, formatErrf(0, "", "header too short: no type-table size at header line %d", typeCountLine)
	}
	n, err := strconv.Atoi(header[typeCountLine])
	if err != nil {
		return nil, formatErrf(typeCountLine+1, header[typeCountLine], "type-table size is not an integer")
	}
	if len(header) < typeCountLine+1+n {
		return nil, formatErrf(0, "", "header lists %d observation types but holds %d", n, len(header)-typeCountLine-1)
	}

	types := make(map[string]string, n)
	for i := typeCountLine + 1; i <= typeCountLine+n; i++ {
		fields := strings.Fields(header[i])
		if len(fields) != 2 {
			return nil, formatErrf(i+1, header[i], "type entry must be two tokens, got %d", len(fields))
		}
		types[fields[0]] = fields[1]
	}
	return types, nil
}

// collectCopyNames returns the copy names, which start on the line after the
// first header line containing both "num_obs:" and "max_num_obs:" and run to
// the end of the header. Multi-word names are joined with underscores.
func collectCopyNames(header []string) ([]string, error) {
	first := -1
	for i, line := range header {
		if strings.Contains(line, "num_obs:") && strings.Contains(line, "max_num_obs:") {
			first = i + 1
			break
		}
	}
	if first < 0 {
		return nil, formatErrf(0, "", "no header line with both %q and %q", "num_obs:", "max_num_obs:")
	}

	names := make([]string, 0, len(header)-first)
	for _, line := range header[first:] {
		names = append(names, strings.Join(strings.Fields(line), "_"))
	}
	return names, nil
}
