// Package textsplit splits text into overlapping, size-bounded chunks along
// an ordered list of separators, coarsest first.
package textsplit

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// DefaultSeparators goes paragraph, line, sentence, word, character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// New builds a splitter. Sizes are measured in runes. An overlap that does not
// leave room for new content is reduced to a quarter of the chunk size.
func New(size, overlap int, separators ...string) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	seps := make([]string, len(separators))
	copy(seps, separators)
	return &Splitter{size: size, overlap: overlap, separators: seps}
}

func (s *Splitter) ChunkSize() int { return s.size }

func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in document order. Each chunk after the
// first starts with the last Overlap() runes of its predecessor, except after
// an indivisible unit that could not be made to fit. Whitespace-only chunks
// are dropped so callers never see a blank entry.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.size {
		return []string{text}
	}
	units := s.units(text, s.separators)
	merged := s.merge(units)
	out := merged[:0]
	for _, c := range merged {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// units breaks text into pieces no longer than size-overlap, recursing into
// finer separators for pieces that are still too long.
func (s *Splitter) units(text string, separators []string) []string {
	limit := s.size - s.overlap
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	if len(separators) == 0 {
		return []string{text}
	}

	sep, finer := separators[0], separators[1:]
	if sep == "" {
		return runeWindows(text, limit)
	}
	if !strings.Contains(text, sep) {
		return s.units(text, finer)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= limit {
			out = append(out, part)
			continue
		}
		out = append(out, s.units(part, finer)...)
	}
	return out
}

func (s *Splitter) merge(units []string) []string {
	var (
		chunks []string
		cur    []rune
		fresh  bool
	)
	for _, unit := range units {
		u := []rune(unit)
		if fresh && len(cur)+len(u) > s.size {
			chunks = append(chunks, string(cur))
			cur = tail(cur, s.overlap)
			fresh = false
			if len(cur)+len(u) > s.size {
				// indivisible unit, no room for the overlap prefix
				cur = nil
			}
		}
		cur = append(cur, u...)
		fresh = true
	}
	if fresh {
		chunks = append(chunks, string(cur))
	}
	return chunks
}

func tail(r []rune, n int) []rune {
	if n <= 0 {
		return nil
	}
	if n > len(r) {
		n = len(r)
	}
	out := make([]rune, n)
	copy(out, r[len(r)-n:])
	return out
}

func runeWindows(text string, width int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/width+1)
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
