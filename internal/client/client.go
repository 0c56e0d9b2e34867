package client

import (
	"context"
	"fmt"

	"github.com/kube-rca/sage/internal/config"
)

// Generator - 단계 어댑터가 사용하는 생성 백엔드
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Embedder - 지식 검색용 임베딩 백엔드
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, string, error)
}

// New - LLM_PROVIDER 에 맞는 생성 백엔드와 임베딩 백엔드 생성
// agent 는 임베딩을 제공하지 않으므로 AI_API_KEY 가 있을 때 Gemini 임베딩을 사용하고, 없으면 nil
func New(ctx context.Context, cfg config.LLMConfig) (Generator, Embedder, error) {
	switch cfg.Provider {
	case "gemini":
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "openai":
		c, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "agent":
		agent := NewAgentClient(cfg.AgentURL)
		if cfg.APIKey == "" {
			return agent, nil, nil
		}
		emb, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return agent, emb, nil
	}
	return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
