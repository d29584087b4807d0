package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/models"
)

// Index is an embedding-backed similarity index over the remediation corpus.
// It is built once at startup and read-only afterwards; rebuilding is an
// explicit out-of-band operation.
type Index struct {
	embedder llm.Embedder
	logger   *slog.Logger
	docs     []models.KnowledgeDocument
	vectors  [][]float32
}

// persistedIndex is the on-disk shape of a built index.
type persistedIndex struct {
	Documents []models.KnowledgeDocument `json:"documents"`
	Vectors   [][]float32                `json:"vectors"`
}

// BuildOrLoad returns an index loaded from path when a valid persisted copy
// exists, otherwise embeds the corpus, persists the result, and returns it.
// With a nil embedder the index is empty and every search returns no
// documents.
func BuildOrLoad(ctx context.Context, path string, corpus []models.KnowledgeDocument, embedder llm.Embedder, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{embedder: embedder, logger: logger}

	if embedder == nil {
		logger.Info("embedding capability absent, knowledge retrieval disabled")
		return idx
	}

	if loaded, err := load(path); err == nil && len(loaded.Documents) == len(loaded.Vectors) && len(loaded.Documents) > 0 {
		idx.docs = loaded.Documents
		idx.vectors = loaded.Vectors
		logger.Info("loaded persisted knowledge index", slog.String("path", path), slog.Int("documents", len(idx.docs)))
		return idx
	}

	if err := idx.build(ctx, corpus); err != nil {
		logger.Warn("knowledge index build failed", slog.Any("error", err))
		return idx
	}
	if err := idx.save(path); err != nil {
		logger.Warn("failed to persist knowledge index", slog.String("path", path), slog.Any("error", err))
	}
	logger.Info("built knowledge index from seed corpus", slog.Int("documents", len(idx.docs)))
	return idx
}

func (i *Index) build(ctx context.Context, corpus []models.KnowledgeDocument) error {
	docs := make([]models.KnowledgeDocument, 0, len(corpus))
	vectors := make([][]float32, 0, len(corpus))
	for _, doc := range corpus {
		vec, err := i.embedder.Embed(ctx, doc.Text())
		if err != nil {
			return fmt.Errorf("embed %q: %w", doc.Issue, err)
		}
		docs = append(docs, doc)
		vectors = append(vectors, vec)
	}
	i.docs = docs
	i.vectors = vectors
	return nil
}

func load(path string) (persistedIndex, error) {
	var p persistedIndex
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode index: %w", err)
	}
	return p, nil
}

func (i *Index) save(path string) error {
	if path == "" {
		return nil
	}
	data, err := json.Marshal(persistedIndex{Documents: i.docs, Vectors: i.vectors})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Len reports the number of indexed documents.
func (i *Index) Len() int {
	return len(i.docs)
}

// Search returns the k nearest documents to the query by cosine similarity.
// Embedding failures degrade to an empty result, never an error to the
// caller.
func (i *Index) Search(ctx context.Context, query string, k int) []models.KnowledgeDocument {
	if i == nil || i.embedder == nil || len(i.vectors) == 0 || k <= 0 {
		return nil
	}

	qv, err := i.embedder.Embed(ctx, query)
	if err != nil {
		i.logger.Warn("query embedding failed", slog.Any("error", err))
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(i.vectors))
	for n, vec := range i.vectors {
		scores = append(scores, scored{idx: n, score: cosineSimilarity(qv, vec)})
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]models.KnowledgeDocument, 0, k)
	for _, s := range scores[:k] {
		results = append(results, i.docs[s.idx])
	}
	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
