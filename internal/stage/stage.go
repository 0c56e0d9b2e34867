// Package stage 는 분석 파이프라인의 세 단계(컨텍스트 수집, 지식 보강, 근본 원인 분석)를
// 외부 LLM 호출로 구현한다. 모든 실패는 *Error 로 감싸서 반환하며,
// 재시도는 각 단계 안에서만 수행한다.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Songmu/retry"
	"github.com/go-playground/validator/v10"
	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
)

const (
	NameContextBuilder = "context_builder"
	NameEnricher       = "enricher"
	NameRootCause      = "root_cause"
)

// ErrInvalidOutput - 응답에서 JSON 을 찾지 못했거나 스키마/검증에 실패
var ErrInvalidOutput = errors.New("invalid stage output")

// Error - 단계 실행 실패
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Generator - LLM 백엔드 (client.GeminiClient, client.OpenAIClient, client.AgentClient)
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Retriever - 지식 검색 (knowledge.Retriever)
type Retriever interface {
	Retrieve(ctx context.Context, query, collection string, topK int) ([]model.KnowledgeSnippet, error)
}

// Policy - 단계 내부 재시도 정책
type Policy struct {
	// 첫 시도 이후 추가 시도 횟수
	Retries  uint
	Interval time.Duration
}

var validate = validator.New()

// runner - 세 단계가 공유하는 호출/파싱/검증 로직
type runner struct {
	name   string
	gen    Generator
	policy Policy
	logger *zap.Logger
}

func newRunner(name string, gen Generator, policy Policy, logger *zap.Logger) runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return runner{name: name, gen: gen, policy: policy, logger: logger.Named(name)}
}

// generate - LLM 을 호출해 wrapper 키 아래(또는 최상위)의 JSON 객체를 T 로 디코딩
// check 는 디코딩 직후 정규화와 추가 검증에 사용
func generate[T any](ctx context.Context, r runner, system, prompt, wrapper string, check func(*T) error) (T, error) {
	attempt := 0
	var (
		result  T
		lastErr error
	)

	// 취소되면 nil 을 돌려 재시도를 멈추므로 최종 에러는 lastErr 로 판단
	err := retry.Retry(r.policy.Retries+1, r.policy.Interval, func() error {
		if err := ctx.Err(); err != nil {
			lastErr = err
			return nil
		}
		attempt++

		v, err := generateOnce(ctx, r, system, prompt, wrapper, check)
		lastErr = err
		if err != nil {
			r.logger.Warn("stage attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		result = v
		return nil
	})

	if lastErr == nil {
		lastErr = err
	}
	if lastErr != nil {
		var zero T
		return zero, &Error{Stage: r.name, Err: lastErr}
	}
	return result, nil
}

func generateOnce[T any](ctx context.Context, r runner, system, prompt, wrapper string, check func(*T) error) (T, error) {
	var v T

	text, err := r.gen.Generate(ctx, system, prompt)
	if err != nil {
		return v, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return v, err
	}
	raw = unwrap(raw, wrapper)

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if check != nil {
		if err := check(&v); err != nil {
			return v, err
		}
	}
	if err := validate.Struct(&v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return v, nil
}

// extractJSON - 코드 펜스를 제거하고 가장 바깥쪽 {...} 를 잘라냄
func extractJSON(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidOutput)
	}
	return []byte(s[start : end+1]), nil
}

// unwrap - {"<wrapper>": {...}} 형태면 안쪽 객체만 사용
func unwrap(raw []byte, wrapper string) []byte {
	if wrapper == "" {
		return raw
	}
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return raw
	}
	if inner, ok := outer[wrapper]; ok && len(inner) > 0 && inner[0] == '{' {
		return inner
	}
	return raw
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
