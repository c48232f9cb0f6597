package storage

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/veldt-labs/corpora/internal/domain"
)

// maxLineBytes bounds a single JSONL line. Chunk text is short by
// construction; anything beyond this is a corrupt file.
const maxLineBytes = 1 << 20

// DecodeChunks reads JSONL chunk records from r. Malformed lines and
// records with empty text are skipped rather than failing the file; the
// second return value counts the skipped lines. Blank lines are ignored
// entirely.
func DecodeChunks(r io.Reader) ([]domain.Chunk, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var chunks []domain.Chunk
	skipped := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk domain.Chunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(chunk.Text) == "" {
			skipped++
			continue
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return chunks, skipped, nil
}
