// Package knowledge 는 지식 문서의 수집(분할, 임베딩, 저장)과 벡터 검색을 담당한다.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/model"
)

// Repository - pgvector 저장소 (db.Postgres)
type Repository interface {
	ReplaceKnowledgeSource(ctx context.Context, collection, sourceID string, chunks []db.KnowledgeChunk) (int64, error)
	SearchKnowledge(ctx context.Context, collection, embeddingModel string, vector []float32, topK int) ([]model.KnowledgeSnippet, error)
}

type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// queryEmbedding - 질의 벡터와 그 벡터를 만든 모델
type queryEmbedding struct {
	vector []float32
	model  string
}

// Retriever - 질의 임베딩 후 컬렉션별 유사도 검색
// 같은 질의의 임베딩은 ttl 동안 캐시
type Retriever struct {
	repo     Repository
	embedder Embedder
	cache    *ttlcache.Cache[string, queryEmbedding]
}

func NewRetriever(repo Repository, embedder Embedder, cacheTTL time.Duration) *Retriever {
	cache := ttlcache.New[string, queryEmbedding](
		ttlcache.WithTTL[string, queryEmbedding](cacheTTL),
		ttlcache.WithCapacity[string, queryEmbedding](1024),
	)
	go cache.Start()
	return &Retriever{repo: repo, embedder: embedder, cache: cache}
}

// Close - 캐시 만료 고루틴 종료
func (r *Retriever) Close() {
	r.cache.Stop()
}

func (r *Retriever) Retrieve(ctx context.Context, query, collection string, topK int) ([]model.KnowledgeSnippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.KnowledgeSnippet{}, nil
	}
	if topK <= 0 {
		topK = 5
	}

	emb, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.repo.SearchKnowledge(ctx, model.NormalizeCollection(collection), emb.model, emb.vector, topK)
}

func (r *Retriever) embed(ctx context.Context, query string) (queryEmbedding, error) {
	if item := r.cache.Get(query); item != nil {
		return item.Value(), nil
	}
	vector, embModel, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return queryEmbedding{}, fmt.Errorf("failed to embed query: %w", err)
	}
	emb := queryEmbedding{vector: vector, model: embModel}
	r.cache.Set(query, emb, ttlcache.DefaultTTL)
	return emb, nil
}
