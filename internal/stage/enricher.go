package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
)

const excerptLimit = 500

var enrichCollections = []string{model.CollectionDocuments, model.CollectionPlaybooks, model.CollectionIncidents}

// Enricher - Stage 2: PrimaryContext -> EnhancedContext
// retriever 가 nil 이면 검색 없이 LLM 요약만 수행
type Enricher struct {
	r         runner
	retriever Retriever
	topK      int
}

func NewEnricher(gen Generator, retriever Retriever, topK int, policy Policy, logger *zap.Logger) *Enricher {
	return &Enricher{r: newRunner(NameEnricher, gen, policy, logger), retriever: retriever, topK: topK}
}

func (e *Enricher) Enrich(ctx context.Context, pc model.PrimaryContext) (model.EnhancedContext, error) {
	items := e.retrieve(ctx, pc)
	if err := ctx.Err(); err != nil {
		return model.EnhancedContext{}, &Error{Stage: NameEnricher, Err: err}
	}

	prompt := fmt.Sprintf(
		"Enrich this incident context.\n\n## Primary context\n%s\n\n## Retrieved knowledge\n%s",
		toJSON(pc), toJSON(items),
	)
	reference := fmt.Sprintf("%s@%s", pc.AlertMetadata.AlertName, pc.AlertMetadata.TriggerTime.UTC().Format("2006-01-02T15:04:05Z"))

	return generate(ctx, e.r, enricherSystemPrompt, prompt, "enhanced_context_package", func(ec *model.EnhancedContext) error {
		// 검색 결과는 모델 응답이 아니라 실제 검색값을 사용
		ec.RetrievedKnowledge = items
		ec.PrimaryContextReference = reference
		ec.Normalize()
		return nil
	})
}

// retrieve - 컬렉션별 검색, 실패한 컬렉션은 로그만 남기고 건너뜀
func (e *Enricher) retrieve(ctx context.Context, pc model.PrimaryContext) []model.KnowledgeItem {
	items := []model.KnowledgeItem{}
	if e.retriever == nil {
		return items
	}

	query := enrichQuery(pc)
	for _, collection := range enrichCollections {
		snippets, err := e.retriever.Retrieve(ctx, query, collection, e.topK)
		if err != nil {
			e.r.logger.Warn("knowledge retrieval failed",
				zap.String("collection", collection),
				zap.Error(err),
			)
			continue
		}
		for _, s := range snippets {
			items = append(items, model.KnowledgeItem{
				SourceID:   sourceID(s),
				Collection: collection,
				Excerpt:    excerpt(s.Text),
				Relevance:  clamp01(s.Relevance),
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})
	return items
}

func enrichQuery(pc model.PrimaryContext) string {
	parts := []string{pc.AlertMetadata.AlertName}
	if c := pc.AffectedComponents.Service; c != nil {
		parts = append(parts, *c)
	}
	parts = append(parts, pc.PreliminaryAnalysis.Observations...)
	parts = append(parts, pc.PreliminaryAnalysis.Hypotheses...)
	return strings.Join(parts, "\n")
}

func sourceID(s model.KnowledgeSnippet) string {
	for _, key := range []string{"incident_id", "filename"} {
		if v, ok := s.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return s.ID
}

func excerpt(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= excerptLimit {
		return string(r)
	}
	return string(r[:excerptLimit]) + "..."
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
