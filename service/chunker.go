package service

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"policyqa-backend/models"
)

// Chunker splits parsed page text into overlapping windows with stable
// positional metadata. Each page is chunked independently: a chunk never
// spans two pages.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a chunker with the given window size and overlap,
// measured in characters. Invalid values fall back to 512/128.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 128
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 4
		}
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		// Largest structural boundary first: paragraph break, line break,
		// sentence break, whitespace, then hard cut.
		separators: []string{"\n\n", "\n", ". ", " ", ""},
	}
}

// DocumentID derives a stable document identifier from a filename. The same
// filename always maps to the same ID, which makes re-uploads overwrite
// rather than duplicate.
func DocumentID(filename string) string {
	sum := md5.Sum([]byte(filename))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkDocument splits every page of the document into chunks. Chunk IDs are
// a strictly increasing counter across the whole document, not per page.
// Empty pages yield zero chunks and are not an error.
//
// StartOffset/EndOffset are the window index times (chunkSize - overlap)
// plus the window's word count. They approximate the chunk's token span and
// are consistent within one document, but they are NOT exact character
// positions in the page text.
func (c *Chunker) ChunkDocument(doc *models.ParsedDocument) []models.Chunk {
	chunks := make([]models.Chunk, 0)
	docID := DocumentID(doc.Filename)
	step := c.chunkSize - c.chunkOverlap
	chunkID := 0

	for _, page := range doc.Pages {
		windows := c.Split(page.Text)
		for i, window := range windows {
			tokens := len(strings.Fields(window))
			chunks = append(chunks, models.Chunk{
				DocumentID:   docID,
				ChunkID:      chunkID,
				Text:         window,
				PageNumber:   page.PageNumber,
				Filename:     doc.Filename,
				DocumentType: doc.DocumentType,
				TokenCount:   tokens,
				CharCount:    len(window),
				StartOffset:  i * step,
				EndOffset:    i*step + tokens,
			})
			chunkID++
		}
	}

	return chunks
}

// Split breaks text into overlapping windows of at most chunkSize runes,
// preferring the largest structural boundary that keeps windows under the
// limit. Consecutive windows share an overlap region so quoted policy
// language is never isolated at a window boundary. All size arithmetic here
// counts runes so multibyte text is measured the same way everywhere.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= c.chunkSize {
		return []string{trimmed}
	}
	return c.splitRecursive(trimmed, c.separators)
}

func (c *Chunker) splitRecursive(text string, separators []string) []string {
	// Pick the first separator actually present; fall through to hard cut.
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return c.hardCut(text)
	}

	splits := strings.Split(text, sep)
	var windows []string
	var pending []string

	for _, s := range splits {
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) <= c.chunkSize {
			pending = append(pending, s)
			continue
		}
		// Oversized piece: flush what we have, then recurse with the next
		// smaller boundary.
		if len(pending) > 0 {
			windows = append(windows, c.merge(pending, sep)...)
			pending = nil
		}
		windows = append(windows, c.splitRecursive(s, rest)...)
	}
	if len(pending) > 0 {
		windows = append(windows, c.merge(pending, sep)...)
	}

	return windows
}

// merge greedily joins boundary-sized pieces into windows of at most
// chunkSize runes, carrying roughly chunkOverlap runes of trailing pieces
// into the next window.
func (c *Chunker) merge(splits []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var windows []string
	var current []string
	total := 0

	for _, s := range splits {
		l := utf8.RuneCountInString(s)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}

		if total+l+extra > c.chunkSize && len(current) > 0 {
			if window := strings.TrimSpace(strings.Join(current, sep)); window != "" {
				windows = append(windows, window)
			}
			// Drop leading pieces until the carried-over tail fits the
			// overlap budget and leaves room for the incoming piece.
			for len(current) > 0 && (total > c.chunkOverlap || (total+l+sepLen > c.chunkSize && total > 0)) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}

		current = append(current, s)
		total += l
		if len(current) > 1 {
			total += sepLen
		}
	}

	if len(current) > 0 {
		if window := strings.TrimSpace(strings.Join(current, sep)); window != "" {
			windows = append(windows, window)
		}
	}

	return windows
}

// hardCut slices text into fixed-size rune windows with the configured
// overlap. Last resort when no structural boundary exists.
func (c *Chunker) hardCut(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = c.chunkSize
	}

	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}

// Statistics reports aggregate token and character counts for a chunk set.
// An empty input returns the zero value rather than dividing by zero.
func (c *Chunker) Statistics(chunks []models.Chunk) models.ChunkStatistics {
	if len(chunks) == 0 {
		return models.ChunkStatistics{}
	}

	stats := models.ChunkStatistics{TotalChunks: len(chunks)}
	for _, chunk := range chunks {
		stats.TotalTokens += chunk.TokenCount
		stats.TotalChars += chunk.CharCount
	}
	stats.AvgTokensPerChunk = float64(stats.TotalTokens) / float64(stats.TotalChunks)
	stats.AvgCharsPerChunk = float64(stats.TotalChars) / float64(stats.TotalChunks)
	return stats
}
