package knowledge

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opsstack/incident-rca/internal/models"
)

// fakeEmbedder returns a fixed axis vector per keyword so similarity
// rankings are predictable.
type fakeEmbedder struct {
	calls   int
	failing bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("embedding backend down")
	}
	vec := make([]float32, 4)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "database") {
		vec[0] = 1
	}
	if strings.Contains(lower, "memory") {
		vec[1] = 1
	}
	if strings.Contains(lower, "disk") {
		vec[2] = 1
	}
	vec[3] = 0.1
	return vec, nil
}

func testCorpus() []models.KnowledgeDocument {
	return []models.KnowledgeDocument{
		{Issue: "Database Connection Timeout", Category: models.CategoryDatabase, Solution: "1. Check pool", Rationale: "database pools exhaust"},
		{Issue: "Out of Memory", Category: models.CategoryMemory, Solution: "1. Raise heap", Rationale: "memory pressure"},
		{Issue: "Disk Space Full", Category: models.CategoryDisk, Solution: "1. Clean logs", Rationale: "disk fills with logs"},
	}
}

func TestBuildOrLoadWithoutEmbedder(t *testing.T) {
	idx := BuildOrLoad(context.Background(), "", testCorpus(), nil, nil)
	if idx.Len() != 0 {
		t.Fatalf("Len = %d, want 0 with nil embedder", idx.Len())
	}
	if got := idx.Search(context.Background(), "database", 3); got != nil {
		t.Fatalf("Search on disabled index = %v, want nil", got)
	}
}

func TestBuildOrLoadPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb", "index.json")

	builder := &fakeEmbedder{}
	idx := BuildOrLoad(context.Background(), path, testCorpus(), builder, nil)
	if idx.Len() != 3 {
		t.Fatalf("Len after build = %d, want 3", idx.Len())
	}
	if builder.calls != 3 {
		t.Fatalf("embed calls during build = %d, want 3", builder.calls)
	}

	// Second boot loads the persisted copy without re-embedding the corpus.
	loader := &fakeEmbedder{}
	reloaded := BuildOrLoad(context.Background(), path, testCorpus(), loader, nil)
	if reloaded.Len() != 3 {
		t.Fatalf("Len after reload = %d, want 3", reloaded.Len())
	}
	if loader.calls != 0 {
		t.Fatalf("embed calls during reload = %d, want 0", loader.calls)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	idx := BuildOrLoad(context.Background(), "", testCorpus(), &fakeEmbedder{}, nil)

	results := idx.Search(context.Background(), "database timeout during checkout", 2)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Issue != "Database Connection Timeout" {
		t.Errorf("top result = %q, want database doc", results[0].Issue)
	}
}

func TestSearchCapsAtCorpusSize(t *testing.T) {
	idx := BuildOrLoad(context.Background(), "", testCorpus(), &fakeEmbedder{}, nil)
	if got := idx.Search(context.Background(), "memory", 10); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got := idx.Search(context.Background(), "memory", 0); got != nil {
		t.Fatalf("k=0 should return nil, got %v", got)
	}
}

func TestSearchEmbeddingFailureDegrades(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx := BuildOrLoad(context.Background(), "", testCorpus(), embedder, nil)

	embedder.failing = true
	if got := idx.Search(context.Background(), "database", 3); got != nil {
		t.Fatalf("Search with failing embedder = %v, want nil", got)
	}
}

func TestSeedCorpusShape(t *testing.T) {
	corpus := SeedCorpus()
	if len(corpus) != 10 {
		t.Fatalf("len(SeedCorpus()) = %d, want 10", len(corpus))
	}
	for _, doc := range corpus {
		if doc.Issue == "" || doc.Solution == "" || doc.Category == "" {
			t.Errorf("incomplete corpus document: %+v", doc)
		}
		text := doc.Text()
		if !strings.Contains(text, doc.Issue) || !strings.Contains(text, doc.Solution) {
			t.Errorf("Text() missing fields for %q", doc.Issue)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	c := []float32{0, 1}

	if got := cosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors similarity = %f, want 1", got)
	}
	if got := cosineSimilarity(a, c); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors similarity = %f, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths similarity = %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero vectors similarity = %f, want 0", got)
	}
}
