// Agent 서비스와 HTTP 통신하는 클라이언트 정의
//
// 환경변수:
//   - AGENT_URL: Agent 서비스 URL (예: http://kube-rca-agent.kube-rca.svc:8000)
//
// Agent 는 도구 호출(kubectl, Prometheus 조회 등)을 직접 수행한 뒤
// 최종 JSON 응답만 돌려준다.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAgentURL = "http://kube-rca-agent.kube-rca.svc:8000"

type AgentClient struct {
	baseURL    string
	httpClient *http.Client
}

// AgentGenerateRequest - POST /generate 요청
type AgentGenerateRequest struct {
	SystemPrompt string `json:"system_prompt"`
	Prompt       string `json:"prompt"`
}

// AgentGenerateResponse - POST /generate 응답
type AgentGenerateResponse struct {
	Status string `json:"status"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

func NewAgentClient(baseURL string) *AgentClient {
	if baseURL == "" {
		baseURL = defaultAgentURL
	}
	return &AgentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // AI 분석 시간 고려
		},
	}
}

// Generate - POST /generate 요청 후 output 반환 (동기)
func (c *AgentClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	payload, err := json.Marshal(AgentGenerateRequest{SystemPrompt: system, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(body))
	}

	var out AgentGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("agent error: %s", out.Error)
	}
	if out.Output == "" {
		return "", errors.New("agent returned empty output")
	}
	return out.Output, nil
}
