// Package extraction provides the LLM-backed skill extraction pipeline:
// document chunking, per-chunk extraction calls, and confidence merging.
package extraction

import "strings"

// MaxChunks caps how many chunks a single document may produce. Documents
// longer than MaxChunks*chunkSize characters are truncated; this is an
// explicit scope limit on LLM spend per document.
const MaxChunks = 12

// DefaultChunkSize is the default chunk budget in characters.
const DefaultChunkSize = 3500

// SplitChunks splits a document into chunks of at most chunkSize
// characters. Line endings are normalized first. Where possible a chunk
// breaks at the last newline in the second half of its window so that
// paragraphs stay intact.
func SplitChunks(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	remaining := text
	for len(chunks) < MaxChunks && remaining != "" {
		if len(remaining) <= chunkSize {
			chunks = append(chunks, remaining)
			break
		}

		window := remaining[:chunkSize]
		cut := chunkSize
		// Break at the last newline in the second half of the window, if any.
		if idx := strings.LastIndex(window, "\n"); idx >= chunkSize/2 {
			cut = idx + 1
		}
		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}

	return chunks
}
