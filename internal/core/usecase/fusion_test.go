package usecase

import (
	"testing"

	"github.com/kirillkom/knowledge-base/internal/core/domain"
)

func chunksFromTexts(texts ...string) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(texts))
	for _, text := range texts {
		out = append(out, domain.RetrievedChunk{Text: text})
	}
	return out
}

func TestFuseReciprocalRankPrefersItemsInBothLists(t *testing.T) {
	semantic := chunksFromTexts("A", "B", "C")
	lexical := chunksFromTexts("B", "D")

	fused := fuseReciprocalRank(semantic, lexical, 60, 5)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused candidates, got %d", len(fused))
	}
	if fused[0].Text != "B" {
		t.Fatalf("expected B first after fusion, got %q", fused[0].Text)
	}
	for _, chunk := range fused[1:] {
		if chunk.Score >= fused[0].Score {
			t.Fatalf("expected doubly-found B to outscore %q (%f >= %f)", chunk.Text, chunk.Score, fused[0].Score)
		}
	}
}

func TestFuseReciprocalRankEmptyInputs(t *testing.T) {
	if fused := fuseReciprocalRank(nil, nil, 60, 5); len(fused) != 0 {
		t.Fatalf("expected empty result, got %d", len(fused))
	}
}

func TestFuseReciprocalRankIdenticalSingleItemLists(t *testing.T) {
	fused := fuseReciprocalRank(chunksFromTexts("only"), chunksFromTexts("only"), 60, 5)
	if len(fused) != 1 {
		t.Fatalf("expected single merged candidate, got %d", len(fused))
	}
	if fused[0].Text != "only" {
		t.Fatalf("unexpected candidate %q", fused[0].Text)
	}
	want := 2.0 / 61.0
	if diff := fused[0].Score - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("expected score %f, got %f", want, fused[0].Score)
	}
}

func TestFuseReciprocalRankTrimsToLimit(t *testing.T) {
	semantic := chunksFromTexts("a", "b", "c", "d", "e", "f", "g")
	fused := fuseReciprocalRank(semantic, nil, 60, 5)
	if len(fused) != 5 {
		t.Fatalf("expected trim to 5, got %d", len(fused))
	}
}

func TestFuseReciprocalRankTiesKeepFirstSeenOrder(t *testing.T) {
	// Same rank in each list scores identically; the semantic list is
	// folded first, so its item must stay ahead.
	fused := fuseReciprocalRank(chunksFromTexts("from-semantic"), chunksFromTexts("from-lexical"), 60, 5)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	if fused[0].Text != "from-semantic" {
		t.Fatalf("expected stable tie-break, got %q first", fused[0].Text)
	}
}

func TestFuseReciprocalRankMergesIdenticalTextAcrossDocuments(t *testing.T) {
	semantic := []domain.RetrievedChunk{{DocumentID: "doc-1", Text: "same words"}}
	lexical := []domain.RetrievedChunk{{DocumentID: "doc-2", Text: "same words"}}

	fused := fuseReciprocalRank(semantic, lexical, 60, 5)
	if len(fused) != 1 {
		t.Fatalf("identical text must collapse to one candidate, got %d", len(fused))
	}
	if fused[0].DocumentID != "doc-1" {
		t.Fatalf("expected first-seen chunk kept, got document %q", fused[0].DocumentID)
	}
}
