package chunker

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkText splits text into chunks of at most the configured size.
//
// Sentences are packed greedily. When the next sentence would overflow,
// the current chunk is closed and the next one starts with its last few
// words. Sentences longer than the chunk size, and text without any
// sentence punctuation, are cut into overlapping character windows.
func (p *Processor) ChunkText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !strings.ContainsAny(text, ".!?") {
		return p.windows(text)
	}

	var (
		chunks  []string
		current string
	)
	for sentence := range Sentences(text) {
		for _, piece := range p.fit(sentence) {
			if current == "" {
				current = piece
				continue
			}
			if runeLen(current)+1+runeLen(piece) > p.chunkSize {
				chunks = append(chunks, current)
				current = p.seed(current, piece)
				continue
			}
			current += " " + piece
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	if len(chunks) == 0 {
		return p.windows(text)
	}
	return chunks
}

// seed starts a new chunk with the tail words of prev followed by piece.
// The tail is dropped when it would push the chunk over the size limit.
func (p *Processor) seed(prev, piece string) string {
	if p.overlapWords == 0 {
		return piece
	}
	words := strings.Fields(prev)
	if len(words) > p.overlapWords {
		words = words[len(words)-p.overlapWords:]
	}
	candidate := strings.Join(words, " ") + " " + piece
	if runeLen(candidate) > p.chunkSize {
		return piece
	}
	return candidate
}

// fit returns s unchanged when it fits in a chunk, or windows of it otherwise.
func (p *Processor) fit(s string) []string {
	if runeLen(s) <= p.chunkSize {
		return []string{s}
	}
	return p.windows(s)
}

// windows slices text into fixed-size character windows that overlap by
// the configured character overlap.
func (p *Processor) windows(text string) []string {
	runes := []rune(text)
	step := p.chunkSize - p.overlap
	if step <= 0 {
		step = p.chunkSize
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := min(start+p.chunkSize, len(runes))
		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			out = append(out, w)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// Sentences yields the sentences of text in order. A sentence ends at
// '.', '!' or '?' immediately followed by whitespace, or at the end of
// the text. Sentences are trimmed and empty ones are skipped.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i, r := range text {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			next, _ := utf8.DecodeRuneInString(text[i+1:])
			if !unicode.IsSpace(next) {
				continue
			}
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				if !yield(s) {
					return
				}
			}
			start = i + 1
		}
		if s := strings.TrimSpace(text[start:]); s != "" {
			yield(s)
		}
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
