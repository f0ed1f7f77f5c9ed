package usecase

import (
	"sort"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	chunk domain.RetrievedChunk
	score float64
}

// fuseReciprocalRank merges a vector-ranked and a keyword-ranked list with
// reciprocal-rank fusion: each list contributes 1/(k+rank+1) per item,
// best rank first. Identity is the chunk's exact text, so distinct chunks
// carrying identical text collapse into one candidate. Ties keep
// first-seen order; the result is trimmed to limit.
func fuseReciprocalRank(semantic, lexical []domain.RetrievedChunk, k, limit int) []domain.RetrievedChunk {
	if k <= 0 {
		k = defaultRRFK
	}

	acc := make(map[string]*fusedCandidate, len(semantic)+len(lexical))
	order := make([]string, 0, len(semantic)+len(lexical))

	addList := func(chunks []domain.RetrievedChunk) {
		for rank, chunk := range chunks {
			candidate, seen := acc[chunk.Text]
			if !seen {
				candidate = &fusedCandidate{chunk: chunk}
				acc[chunk.Text] = candidate
				order = append(order, chunk.Text)
			}
			candidate.score += 1.0 / float64(k+rank+1)
		}
	}

	addList(semantic)
	addList(lexical)

	out := make([]domain.RetrievedChunk, 0, len(order))
	for _, key := range order {
		chunk := acc[key].chunk
		chunk.Score = acc[key].score
		out = append(out, chunk)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
