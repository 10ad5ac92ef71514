// Package chunker splits normalized text into fixed-size ordered segments.
package chunker

// Split divides text into contiguous, non-overlapping segments of at most
// size characters, preserving order. The final segment may be shorter.
// Concatenating the returned segments reproduces text exactly. Empty input
// yields no segments.
func Split(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
