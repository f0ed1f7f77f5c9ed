package chunking

import "strings"

// Boundary preference when carving text into segments, largest first.
// The empty separator is the terminal hard rune cut.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces overlapping windows of at most ChunkSize runes.
// Splitting recurses through paragraph, line, sentence and word
// boundaries before falling back to a hard cut, so a chunk only breaks
// mid-token when the token itself exceeds the window. The last Overlap
// runes of the text covered so far are prepended to each subsequent
// chunk; stripping those prefixes and concatenating restores the input
// exactly.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	// Fresh content per window, so that window + overlap prefix stays
	// within ChunkSize.
	window := s.ChunkSize - s.Overlap
	if window <= 0 {
		window = s.ChunkSize
	}

	segments := carve(text, window, 0)
	windows := merge(segments, window)

	out := make([]string, 0, len(windows))
	covered := make([]rune, 0, len(text))
	for i, w := range windows {
		if i == 0 {
			out = append(out, w)
		} else {
			out = append(out, tail(covered, s.Overlap)+w)
		}
		covered = append(covered, []rune(w)...)
	}
	return out
}

// carve splits text into segments of at most limit runes, preferring the
// largest boundary that fits and descending one boundary type at a time
// into oversized pieces.
func carve(text string, limit, sepIdx int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return hardCut(text, limit)
	}

	parts := splitKeep(text, separators[sepIdx])
	if len(parts) == 1 {
		return carve(text, limit, sepIdx+1)
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if len([]rune(part)) <= limit {
			out = append(out, part)
			continue
		}
		out = append(out, carve(part, limit, sepIdx+1)...)
	}
	return out
}

// splitKeep splits on sep with the separator attached to the preceding
// piece, so concatenating the pieces restores the input.
func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter yields a trailing empty piece when text ends in sep.
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func hardCut(text string, limit int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// merge greedily joins consecutive segments while staying within limit.
func merge(segments []string, limit int) []string {
	out := make([]string, 0, len(segments))
	var current strings.Builder
	currentLen := 0

	for _, segment := range segments {
		segLen := len([]rune(segment))
		if currentLen > 0 && currentLen+segLen > limit {
			out = append(out, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(segment)
		currentLen += segLen
	}
	if currentLen > 0 {
		out = append(out, current.String())
	}
	return out
}

func tail(runes []rune, n int) string {
	if n <= 0 || len(runes) == 0 {
		return ""
	}
	if n >= len(runes) {
		return string(runes)
	}
	return string(runes[len(runes)-n:])
}
