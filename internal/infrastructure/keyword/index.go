package keyword

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

// Entry is one indexed chunk with its metadata. Only entries are
// persisted; scoring state is rebuilt from them on every load and
// mutation.
type Entry struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

type persistedIndex struct {
	Entries []Entry `json:"entries"`
}

// Index is the in-process lexical index over all ingested chunks. It is
// constructed once at startup and shared across the process; a RWMutex
// serializes mutation against search. Every mutation rebuilds the BM25
// structure over the full corpus and rewrites the persisted entry
// sequence, trading write cost for a scoring structure that can never
// drift from the entries.
type Index struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []Entry
	scorer  *bm25Scorer
}

// Open loads the persisted entry sequence from path. A missing file is a
// fresh index; an unreadable or corrupt file is logged and treated as
// empty rather than failing startup.
func Open(path string, logger *slog.Logger) (*Index, error) {
	idx := &Index{
		path:   path,
		logger: logger,
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run.
	case err != nil:
		logger.Warn("keyword index unreadable, starting empty", "path", path, "error", err)
	default:
		var stored persistedIndex
		if err := json.Unmarshal(raw, &stored); err != nil {
			logger.Warn("keyword index corrupt, starting empty", "path", path, "error", err)
		} else {
			idx.entries = stored.Entries
		}
	}

	idx.scorer = newBM25Scorer(tokenizeAll(idx.entries))
	logger.Info("keyword index loaded", "path", path, "entries", len(idx.entries))
	return idx, nil
}

// Add appends entries, rebuilds scoring over the full corpus and persists
// the new entry sequence.
func (i *Index) Add(chunks []string, metadatas []map[string]string) error {
	if len(chunks) != len(metadatas) {
		return fmt.Errorf("chunks/metadatas mismatch: %d/%d", len(chunks), len(metadatas))
	}
	if len(chunks) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for idx, chunk := range chunks {
		i.entries = append(i.entries, Entry{Text: chunk, Metadata: metadatas[idx]})
	}
	i.scorer = newBM25Scorer(tokenizeAll(i.entries))
	return i.persistLocked()
}

// Delete removes every entry whose metadata document_id matches. No match
// is a logged no-op, not an error.
func (i *Index) Delete(documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	kept := i.entries[:0:0]
	for _, entry := range i.entries {
		if entry.Metadata["document_id"] != documentID {
			kept = append(kept, entry)
		}
	}

	removed := len(i.entries) - len(kept)
	if removed == 0 {
		i.logger.Info("no keyword entries for document", "document_id", documentID)
		return nil
	}

	i.entries = kept
	i.scorer = newBM25Scorer(tokenizeAll(i.entries))
	i.logger.Info("keyword entries removed", "document_id", documentID, "removed", removed)
	return i.persistLocked()
}

// Search scores every entry against the query, drops non-positive scores
// and returns the top k. Equal scores keep corpus order.
func (i *Index) Search(query string, k int) []domain.RetrievedChunk {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || k <= 0 {
		return nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	type scored struct {
		pos   int
		score float64
	}
	hits := make([]scored, 0, len(i.entries))
	for pos := range i.entries {
		if s := i.scorer.score(queryTokens, pos); s > 0 {
			hits = append(hits, scored{pos: pos, score: s})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		entry := i.entries[hit.pos]
		out = append(out, domain.RetrievedChunk{
			DocumentID: entry.Metadata["document_id"],
			Filename:   entry.Metadata["source_filename"],
			Text:       entry.Text,
			Score:      hit.score,
		})
	}
	return out
}

// Len reports the number of indexed entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Index) persistLocked() error {
	raw, err := json.Marshal(persistedIndex{Entries: i.entries})
	if err != nil {
		return fmt.Errorf("marshal keyword index: %w", err)
	}

	tmp := i.path + ".tmp"
	if dir := filepath.Dir(i.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create keyword index dir: %w", err)
		}
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write keyword index: %w", err)
	}
	if err := os.Rename(tmp, i.path); err != nil {
		return fmt.Errorf("replace keyword index: %w", err)
	}
	return nil
}

func tokenizeAll(entries []Entry) [][]string {
	out := make([][]string, len(entries))
	for i, entry := range entries {
		out[i] = tokenize(entry.Text)
	}
	return out
}
