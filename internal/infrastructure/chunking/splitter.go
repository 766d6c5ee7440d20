package chunking

import (
	"regexp"
	"strings"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

// Splitter cuts extracted pages into overlapping retrieval chunks. Chunks
// never span pages, each carries its page bounds and the section heading in
// effect where it starts.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
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

// numberedHeading matches section headings like "3.2 Coin Mechanism".
var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)

func (s *Splitter) Split(pages []domain.PageText) []domain.Chunk {
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	var out []domain.Chunk
	section := ""
	index := 0
	for _, page := range pages {
		section = lastHeading(page.Text, section)

		runes := []rune(page.Text)
		for start := 0; start < len(runes); start += step {
			end := start + s.ChunkSize
			if end > len(runes) {
				end = len(runes)
			}
			content := strings.TrimSpace(string(runes[start:end]))
			if content != "" {
				pageNum := page.Number
				out = append(out, domain.Chunk{
					ChunkIndex:  index,
					Content:     content,
					SectionPath: section,
					PageStart:   &pageNum,
					PageEnd:     &pageNum,
				})
				index++
			}
			if end == len(runes) {
				break
			}
		}
	}
	return out
}

// lastHeading returns the final heading found on the page, or the section
// carried over from earlier pages when the page has none.
func lastHeading(text, current string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 80 {
			continue
		}
		if numberedHeading.MatchString(line) || isUpperHeading(line) {
			current = line
		}
	}
	return current
}

func isUpperHeading(line string) bool {
	letters := 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 4
}
