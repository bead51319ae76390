package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// chunkSize stays under the 50k character cell limit.
const chunkSize = 40000

type chunk struct {
	seq  int
	text string
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return fmt.Sprint(row[i])
}

// decodeRows reassembles the blob stored under key.
func decodeRows(rows [][]any, key string) ([]byte, bool, error) {
	var chunks []chunk
	for i, row := range rows {
		if strings.TrimSpace(cell(row, 0)) != key {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSpace(cell(row, 1)))
		if err != nil {
			return nil, false, fmt.Errorf("row %d: bad sequence %q", i+1, cell(row, 1))
		}
		chunks = append(chunks, chunk{seq: seq, text: cell(row, 2)})
	}
	if len(chunks) == 0 {
		return nil, false, nil
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })

	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.text)
	}
	return []byte(b.String()), true, nil
}

// encodeRows returns the full tab content after writing data under key.
func encodeRows(rows [][]any, key string, data []byte) [][]any {
	var out [][]any
	for _, row := range rows {
		k := strings.TrimSpace(cell(row, 0))
		if k == "" || k == key {
			continue
		}
		out = append(out, row)
	}
	parts := splitChunks(string(data), chunkSize)
	for i, p := range parts {
		out = append(out, []any{key, i, p})
	}
	return out
}

// splitChunks cuts s into pieces of at most size bytes without splitting a rune.
// An empty string still yields one empty chunk so the key stays present.
func splitChunks(s string, size int) []string {
	if s == "" {
		return []string{""}
	}
	var parts []string
	for len(s) > 0 {
		n := size
		if n >= len(s) {
			parts = append(parts, s)
			break
		}
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		if n == 0 {
			n = size
		}
		parts = append(parts, s[:n])
		s = s[n:]
	}
	return parts
}
