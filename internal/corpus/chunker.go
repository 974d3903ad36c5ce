package corpus

import (
	"fmt"

	"github.com/google/uuid"
)

// maxChunkChars is the threshold above which a file's content is
// split into fixed-size sub-chunks for embedding.
const maxChunkChars = 2000

// Chunk is the unit of semantic search: one file, or one slice of a
// large file. Embedding stays nil until indexing succeeds for the
// chunk; a failed embedding call leaves it nil permanently.
type Chunk struct {
	ID        string
	FileName  string
	Content   string
	Embedding []float32
}

// Embedded reports whether the chunk carries an embedding.
func (c *Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// Chunks derives the flat chunk sequence from a corpus.
//
// Files at or under the size threshold become one chunk each. Larger
// files are split into maxChunkChars-rune slices labeled with the
// file name plus a part index, preserving original order. The
// operation is deterministic apart from the generated IDs.
func Chunks(corpusText string) []Chunk {
	var chunks []Chunk

	for _, f := range Split(corpusText) {
		runes := []rune(f.Content)
		if len(runes) <= maxChunkChars {
			chunks = append(chunks, Chunk{
				ID:       uuid.NewString(),
				FileName: f.Path,
				Content:  f.Content,
			})
			continue
		}

		for part, start := 1, 0; start < len(runes); part, start = part+1, start+maxChunkChars {
			end := start + maxChunkChars
			if end > len(runes) {
				end = len(runes)
			}
			chunks = append(chunks, Chunk{
				ID:       uuid.NewString(),
				FileName: fmt.Sprintf("%s (part %d)", f.Path, part),
				Content:  string(runes[start:end]),
			})
		}
	}

	return chunks
}
