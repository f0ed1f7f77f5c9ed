package keyword

import "math"

const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// bm25Scorer holds the scoring structure for one snapshot of the corpus.
// It is immutable once built and fully derivable from the entry sequence;
// mutations build a fresh scorer instead of patching this one.
type bm25Scorer struct {
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

func newBM25Scorer(tokenized [][]string) *bm25Scorer {
	n := len(tokenized)
	if n == 0 {
		return &bm25Scorer{idf: map[string]float64{}}
	}

	s := &bm25Scorer{
		termFreqs: make([]map[string]int, n),
		docLens:   make([]int, n),
		idf:       make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, tokens := range tokenized {
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for token := range tf {
			docFreq[token]++
		}
		s.termFreqs[i] = tf
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}
	s.avgDocLen = float64(totalLen) / float64(n)

	// Okapi IDF with the rank_bm25 negative-IDF floor: terms in more
	// than half the corpus get epsilon times the average IDF instead of
	// a negative weight.
	idfSum := 0.0
	var negative []string
	for token, df := range docFreq {
		idf := math.Log((float64(n) - float64(df) + 0.5) / (float64(df) + 0.5))
		s.idf[token] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, token)
		}
	}
	avgIDF := idfSum / float64(len(docFreq))
	for _, token := range negative {
		s.idf[token] = bm25Epsilon * avgIDF
	}
	return s
}

// score returns the BM25 relevance of entry docIdx for the query tokens.
func (s *bm25Scorer) score(queryTokens []string, docIdx int) float64 {
	if docIdx >= len(s.termFreqs) {
		return 0
	}
	tf := s.termFreqs[docIdx]
	lenNorm := 1 - bm25B + bm25B*float64(s.docLens[docIdx])/s.avgDocLen

	total := 0.0
	for _, token := range queryTokens {
		freq := float64(tf[token])
		if freq == 0 {
			continue
		}
		total += s.idf[token] * (freq * (bm25K1 + 1)) / (freq + bm25K1*lenNorm)
	}
	return total
}
