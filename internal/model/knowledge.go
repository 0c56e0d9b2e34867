package model

// 지식 컬렉션 이름
const (
	CollectionDocuments = "documents"
	CollectionPlaybooks = "playbooks"
	CollectionIncidents = "incidents"
)

// NormalizeCollection - 알 수 없는 컬렉션은 documents 로 처리
func NormalizeCollection(name string) string {
	switch name {
	case CollectionDocuments, CollectionPlaybooks, CollectionIncidents:
		return name
	}
	return CollectionDocuments
}

// KnowledgeSnippet - 벡터 검색 결과 한 건
type KnowledgeSnippet struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata" swaggertype:"object"`
	// 1/(1+거리), (0,1] 범위
	Relevance float64 `json:"relevance"`
}

// DocumentUploadRequest - 지식 문서 업로드 요청
type DocumentUploadRequest struct {
	Filename   string `json:"filename" binding:"required"`
	Collection string `json:"collection"`
	Content    string `json:"content" binding:"required"`
}

// DocumentUploadResponse - 지식 문서 업로드 응답
type DocumentUploadResponse struct {
	Status     string `json:"status"`
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
}

// DocumentSearchResponse - 지식 검색 응답
type DocumentSearchResponse struct {
	Status string             `json:"status"`
	Data   []KnowledgeSnippet `json:"data"`
}
