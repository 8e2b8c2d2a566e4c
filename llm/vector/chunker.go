package vector

import (
	"strings"
	"unicode"
)

// ChunkConfig configures how extracted text is split into chunks.
type ChunkConfig struct {
	ChunkSize        int  // Maximum chunk size in characters
	ChunkOverlap     int  // Overlap carried from the previous chunk
	MinChunkSize     int  // Minimum chunk size to keep
	SplitByParagraph bool // Whether to prioritize paragraph splitting
}

// DefaultChunkConfig returns the default chunk configuration.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:        getEnvInt("CHUNK_SIZE", 3000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 1500),
		MinChunkSize:     getEnvInt("MIN_CHUNK_SIZE", 100),
		SplitByParagraph: true,
	}
}

// Chunk is a contiguous span of text produced by splitting a document.
type Chunk struct {
	Content    string
	ChunkIndex int
}

// ChunkText splits text into overlapping chunks. Paragraph boundaries are
// preferred; text without usable paragraphs falls back to sentence
// boundaries, and oversized spans are force-split.
func ChunkText(text string, config ChunkConfig) []Chunk {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 3000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 2
	}
	if config.MinChunkSize <= 0 {
		config.MinChunkSize = 100
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []Chunk{}
	}

	var pieces []string
	if config.SplitByParagraph {
		pieces = assemble(splitParagraphs(text), "\n\n", config)
	}
	if len(pieces) == 0 {
		pieces = assemble(splitSentences(text), " ", config)
	}

	var chunks []Chunk
	for _, piece := range pieces {
		if len(piece) <= config.ChunkSize {
			if len(piece) >= config.MinChunkSize {
				chunks = append(chunks, Chunk{Content: piece})
			}
			continue
		}
		for _, sub := range forceSplit(piece, config.ChunkSize, config.ChunkOverlap) {
			if len(sub) >= config.MinChunkSize {
				chunks = append(chunks, Chunk{Content: sub})
			}
		}
	}

	// Short inputs still produce one chunk; dropping them entirely would
	// make small documents unsearchable.
	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{Content: text})
	}

	for i := range chunks {
		chunks[i].ChunkIndex = i
	}
	return chunks
}

// assemble greedily packs units (paragraphs or sentences) into chunks of at
// most ChunkSize characters, carrying ChunkOverlap tail characters from one
// chunk into the next.
func assemble(units []string, sep string, config ChunkConfig) []string {
	var out []string
	var current strings.Builder

	flush := func() string {
		content := strings.TrimSpace(current.String())
		if content != "" {
			out = append(out, content)
		}
		current.Reset()
		return content
	}

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(sep)+len(unit) > config.ChunkSize {
			previous := flush()
			if config.ChunkOverlap > 0 && previous != "" {
				current.WriteString(tailOverlap(previous, config.ChunkOverlap))
				current.WriteString(sep)
			}
		}

		current.WriteString(unit)
		current.WriteString(sep)
	}
	flush()

	return out
}

func splitParagraphs(text string) []string {
	return strings.Split(text, "\n\n")
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace or a closing quote/bracket.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if isSentenceEnd(runes[i]) {
			next := runeAt(runes, i+1)
			if next == 0 || unicode.IsSpace(next) || next == '"' || next == '\'' || next == ')' || next == ']' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

// runeAt safely returns the rune at index or 0 past either end.
func runeAt(runes []rune, i int) rune {
	if i < 0 || i >= len(runes) {
		return 0
	}
	return runes[i]
}

// tailOverlap returns the last size characters of text, advanced to the next
// word boundary when one exists.
func tailOverlap(text string, size int) string {
	if size <= 0 || text == "" {
		return ""
	}
	runes := []rune(text)
	if size >= len(runes) {
		return text
	}

	tail := string(runes[len(runes)-size:])
	if firstSpace := strings.IndexByte(tail, ' '); firstSpace > 0 {
		return tail[firstSpace+1:]
	}
	return tail
}

// forceSplit cuts text into fixed-size rune windows with overlap.
func forceSplit(text string, size, overlap int) []string {
	var chunks []string

	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = size
	}

	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
