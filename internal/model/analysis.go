package model

import "time"

// ============================================================================
// Stage 1: PrimaryContext (알림 컨텍스트 수집 결과)
// ============================================================================

type AlertMetadata struct {
	AlertName       string    `json:"alert_name" validate:"required"`
	Severity        string    `json:"severity" validate:"required"`
	FiringCondition string    `json:"firing_condition"`
	TriggerTime     time.Time `json:"trigger_time"`
}

// AffectedComponents - 영향 받은 컴포넌트
// 알림에 따라 어느 값이든 없을 수 있으므로 모두 nullable
type AffectedComponents struct {
	Service   *string `json:"service"`
	Namespace *string `json:"namespace"`
	Pod       *string `json:"pod"`
	Node      *string `json:"node"`
}

// EvidenceCollected - 수집된 근거 데이터 (비어 있을 수 있음)
type EvidenceCollected struct {
	Metrics []map[string]any `json:"metrics"`
	Logs    []map[string]any `json:"logs"`
	Events  []map[string]any `json:"events"`
}

type PreliminaryAnalysis struct {
	Observations       []string `json:"observations"`
	Hypotheses         []string `json:"hypotheses"`
	MissingInformation []string `json:"missing_information"`
}

type PrimaryContext struct {
	AlertMetadata       AlertMetadata       `json:"alert_metadata"`
	AffectedComponents  AffectedComponents  `json:"affected_components"`
	EvidenceCollected   EvidenceCollected   `json:"evidence_collected"`
	PreliminaryAnalysis PreliminaryAnalysis `json:"preliminary_analysis"`
}

// Normalize - nil 슬라이스를 빈 슬라이스로 변환
func (p *PrimaryContext) Normalize() {
	p.EvidenceCollected.Metrics = emptyRecords(p.EvidenceCollected.Metrics)
	p.EvidenceCollected.Logs = emptyRecords(p.EvidenceCollected.Logs)
	p.EvidenceCollected.Events = emptyRecords(p.EvidenceCollected.Events)
	p.PreliminaryAnalysis.Observations = emptyStrings(p.PreliminaryAnalysis.Observations)
	p.PreliminaryAnalysis.Hypotheses = emptyStrings(p.PreliminaryAnalysis.Hypotheses)
	p.PreliminaryAnalysis.MissingInformation = emptyStrings(p.PreliminaryAnalysis.MissingInformation)
}

// ============================================================================
// Stage 2: EnhancedContext (지식 기반 보강 결과)
// ============================================================================

// KnowledgeItem - 검색된 지식 항목
type KnowledgeItem struct {
	SourceID   string  `json:"source_id"`
	Collection string  `json:"collection"`
	Excerpt    string  `json:"excerpt"`
	Relevance  float64 `json:"relevance" validate:"gte=0,lte=1"`
}

type ContextualEnrichment struct {
	FailurePatterns         []string `json:"failure_patterns"`
	PossibleCauses          []string `json:"possible_causes"`
	RelatedIncidents        []string `json:"related_incidents"`
	KnownRemediationActions []string `json:"known_remediation_actions"`
}

type EnhancedContext struct {
	// 참조만 할 뿐 PrimaryContext를 소유하지 않음
	PrimaryContextReference string               `json:"primary_context_reference"`
	RetrievedKnowledge      []KnowledgeItem      `json:"retrieved_knowledge" validate:"dive"`
	KnowledgeSummary        string               `json:"knowledge_summary"`
	ContextualEnrichment    ContextualEnrichment `json:"contextual_enrichment"`
}

func (e *EnhancedContext) Normalize() {
	if e.RetrievedKnowledge == nil {
		e.RetrievedKnowledge = []KnowledgeItem{}
	}
	c := &e.ContextualEnrichment
	c.FailurePatterns = emptyStrings(c.FailurePatterns)
	c.PossibleCauses = emptyStrings(c.PossibleCauses)
	c.RelatedIncidents = emptyStrings(c.RelatedIncidents)
	c.KnownRemediationActions = emptyStrings(c.KnownRemediationActions)
}

// ============================================================================
// Stage 3: DiagnosticReport (근본 원인 분석 결과)
// ============================================================================

type RemediationPlan struct {
	ShortTermActions []string `json:"short_term_actions"`
	LongTermActions  []string `json:"long_term_actions"`
}

type DiagnosticReport struct {
	RootCause string `json:"root_cause" validate:"required"`

	// 순서 있는 추론 단계
	ReasoningSteps         []string        `json:"reasoning_steps"`
	SupportingEvidence     []string        `json:"supporting_evidence"`
	ConfidenceScore        float64         `json:"confidence_score" validate:"gte=0,lte=1"`
	RecommendedRemediation RemediationPlan `json:"recommended_remediation"`
}

func (d *DiagnosticReport) Normalize() {
	d.ReasoningSteps = emptyStrings(d.ReasoningSteps)
	d.SupportingEvidence = emptyStrings(d.SupportingEvidence)
	d.RecommendedRemediation.ShortTermActions = emptyStrings(d.RecommendedRemediation.ShortTermActions)
	d.RecommendedRemediation.LongTermActions = emptyStrings(d.RecommendedRemediation.LongTermActions)
}

func emptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyRecords(s []map[string]any) []map[string]any {
	if s == nil {
		return []map[string]any{}
	}
	return s
}
