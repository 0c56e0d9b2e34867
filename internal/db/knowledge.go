package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/kube-rca/sage/internal/model"
	"github.com/pgvector/pgvector-go"
)

// KnowledgeChunk - 임베딩과 함께 저장되는 지식 문서 조각
type KnowledgeChunk struct {
	Collection string
	SourceID   string
	Content    string
	Metadata   map[string]any
	Model      string
	Vector     []float32
}

// EnsureKnowledgeSchema - pgvector 확장과 knowledge_chunks 테이블 생성 (없으면)
func (p *Postgres) EnsureKnowledgeSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`
		CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id BIGSERIAL PRIMARY KEY,
			collection TEXT NOT NULL,
			source_id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector NOT NULL,
			model TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_collection_idx ON knowledge_chunks(collection)`,
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_source_idx ON knowledge_chunks(source_id)`,
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_collection_model_idx ON knowledge_chunks(collection, model)`,
	}

	for _, query := range queries {
		if _, err := p.Pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure knowledge schema: %w", err)
		}
	}
	return nil
}

func knowledgeInsertQuery() string {
	return `
		INSERT INTO knowledge_chunks (collection, source_id, content, metadata, embedding, model)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
}

// ReplaceKnowledgeSource - 같은 출처의 기존 조각을 새 조각으로 교체
// 삭제와 삽입을 한 트랜잭션으로 처리하므로 중간에 실패하면 기존 조각이 그대로 남음
func (p *Postgres) ReplaceKnowledgeSource(ctx context.Context, collection, sourceID string, chunks []KnowledgeChunk) (int64, error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin knowledge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE collection = $1 AND source_id = $2`,
		collection, sourceID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge source: %w", err)
	}

	for idx, c := range chunks {
		if err := insertKnowledgeChunk(ctx, tx, c); err != nil {
			return 0, fmt.Errorf("chunk %d: %w", idx, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit knowledge transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertKnowledgeChunk(ctx context.Context, tx pgx.Tx, c KnowledgeChunk) error {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = tx.Exec(ctx, knowledgeInsertQuery(),
		c.Collection, c.SourceID, c.Content, metaJSON, pgvector.NewVector(c.Vector), c.Model,
	)
	if err != nil {
		return fmt.Errorf("failed to insert knowledge chunk: %w", err)
	}
	return nil
}

// SearchKnowledge - 코사인 거리 기준 상위 topK 조각 조회
// 질의와 같은 임베딩 모델로 저장된 조각만 비교 (모델마다 차원과 공간이 다름)
// relevance = 1/(1+distance)
func (p *Postgres) SearchKnowledge(ctx context.Context, collection, embeddingModel string, vector []float32, topK int) ([]model.KnowledgeSnippet, error) {
	query := `
		SELECT id, content, metadata, embedding <=> $2 AS distance
		FROM knowledge_chunks
		WHERE collection = $1 AND model = $4
		ORDER BY embedding <=> $2
		LIMIT $3
	`

	rows, err := p.Pool.Query(ctx, query, collection, pgvector.NewVector(vector), topK, embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	defer rows.Close()

	var list []model.KnowledgeSnippet
	for rows.Next() {
		var (
			id       int64
			content  string
			metaJSON []byte
			distance float64
		)
		if err := rows.Scan(&id, &content, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		snippet := model.KnowledgeSnippet{
			ID:         strconv.FormatInt(id, 10),
			Collection: collection,
			Text:       content,
			Relevance:  1 / (1 + distance),
		}
		if err := json.Unmarshal(metaJSON, &snippet.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		list = append(list, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge chunks: %w", err)
	}

	if list == nil {
		list = []model.KnowledgeSnippet{}
	}
	return list, nil
}
