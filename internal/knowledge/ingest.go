package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const embedConcurrency = 4

type Ingester struct {
	repo         Repository
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

func NewIngester(repo Repository, embedder Embedder, chunkSize, chunkOverlap int, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		repo:         repo,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger.Named("knowledge"),
	}
}

// IngestFile - 로컬 파일을 읽어 수집
func (i *Ingester) IngestFile(ctx context.Context, path, collection string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return i.IngestDocument(ctx, filepath.Base(path), content, collection)
}

// IngestDocument - 문서 파싱 후 같은 파일명의 기존 조각을 교체
func (i *Ingester) IngestDocument(ctx context.Context, filename string, content []byte, collection string) (int, error) {
	doc, err := ParseDocument(filename, content)
	if err != nil {
		return 0, err
	}
	return i.IngestText(ctx, doc.Filename, doc.Text, model.NormalizeCollection(collection), map[string]any{
		"filename": doc.Filename,
		"doc_type": doc.DocType,
	})
}

// IngestText - 분할, 임베딩, 저장. 저장된 조각 수 반환
func (i *Ingester) IngestText(ctx context.Context, sourceID, text, collection string, metadata map[string]any) (int, error) {
	chunks := Chunk(text, i.chunkSize, i.chunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("nothing to ingest for %s", sourceID)
	}

	// 임베딩은 병렬, 저장은 전부 성공한 뒤에 수행
	records := make([]db.KnowledgeChunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for idx, chunk := range chunks {
		g.Go(func() error {
			vector, embModel, err := i.embedder.EmbedText(gctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of %s: %w", idx, sourceID, err)
			}
			meta := make(map[string]any, len(metadata)+2)
			for k, v := range metadata {
				meta[k] = v
			}
			meta["chunk_index"] = idx
			meta["chunk_count"] = len(chunks)
			records[idx] = db.KnowledgeChunk{
				Collection: collection,
				SourceID:   sourceID,
				Content:    chunk,
				Metadata:   meta,
				Model:      embModel,
				Vector:     vector,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	removed, err := i.repo.ReplaceKnowledgeSource(ctx, collection, sourceID, records)
	if err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", sourceID, err)
	}

	i.logger.Info("knowledge ingested",
		zap.String("source_id", sourceID),
		zap.String("collection", collection),
		zap.Int("chunks", len(records)),
		zap.Int64("replaced", removed),
	)
	return len(records), nil
}

// IndexIncident - 완료된 incident 의 진단 결과를 incidents 컬렉션에 저장
// 이후 enrichment 단계에서 유사 incident 로 검색됨
func (i *Ingester) IndexIncident(ctx context.Context, incidentID string, alert model.AlertInput, report model.DiagnosticReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert: %s\n", alert.Summary())
	if alert.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", alert.Message)
	}
	fmt.Fprintf(&b, "Root cause: %s\n", report.RootCause)
	fmt.Fprintf(&b, "Confidence: %.2f\n", report.ConfidenceScore)
	for _, a := range report.RecommendedRemediation.ShortTermActions {
		fmt.Fprintf(&b, "Short-term action: %s\n", a)
	}
	for _, a := range report.RecommendedRemediation.LongTermActions {
		fmt.Fprintf(&b, "Long-term action: %s\n", a)
	}

	meta := map[string]any{
		"incident_id": incidentID,
		"alert_name":  alert.AlertName,
		"severity":    alert.Severity,
		"doc_type":    "incident",
	}
	if ns := alert.Label("namespace"); ns != nil {
		meta["namespace"] = *ns
	}
	_, err := i.IngestText(ctx, incidentID, b.String(), model.CollectionIncidents, meta)
	return err
}
