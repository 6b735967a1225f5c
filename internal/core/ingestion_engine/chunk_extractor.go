package ingestion_engine

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter breaks text on the largest boundary that yields pieces
// shorter than ChunkSize, recursing into the next boundary for pieces that are
// still too long, then merges neighbouring pieces back into chunks of at most
// ChunkSize runes. Consecutive chunks share up to Overlap runes of context;
// Overlap outside [0, ChunkSize) is clamped into that range.
//
// Separators stay attached to the start of the piece that follows them, so a
// chunk never ends on a dangling boundary. Output is deterministic.
type RecursiveSplitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	return &RecursiveSplitter{ChunkSize: chunkSize, Overlap: overlap, Separators: DefaultSeparators}
}

// SplitText splits with the default separators.
func SplitText(text string, chunkSize, overlap int) []string {
	return NewRecursiveSplitter(chunkSize, overlap).Split(text)
}

func (s *RecursiveSplitter) Split(text string) []string {
	if s.ChunkSize <= 0 || text == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	if len(separators) > 0 {
		separator = separators[len(separators)-1]
	}
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeepStart(text, separator) {
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks. When a chunk is emitted, pieces are dropped
// from the front until at most Overlap runes remain and the next piece fits.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	overlap := s.overlap()
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.ChunkSize && len(current) > 0 {
			if doc := joinChunk(current); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > overlap || (total+n > s.ChunkSize && total > 0)) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := joinChunk(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// overlap clamps Overlap to [0, ChunkSize).
func (s *RecursiveSplitter) overlap() int {
	switch {
	case s.Overlap < 0:
		return 0
	case s.Overlap >= s.ChunkSize:
		return s.ChunkSize - 1
	}
	return s.Overlap
}

func joinChunk(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// splitKeepStart splits on sep and prefixes every piece but the first with
// it. An empty sep splits into runes. Empty pieces are dropped.
func splitKeepStart(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts = make([]string, 0, len(raw))
	for i, p := range raw {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
