package stage

import (
	"context"
	"fmt"

	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
)

// Builder - Stage 1: AlertInput -> PrimaryContext
type Builder struct {
	r runner
}

func NewBuilder(gen Generator, policy Policy, logger *zap.Logger) *Builder {
	return &Builder{r: newRunner(NameContextBuilder, gen, policy, logger)}
}

func (b *Builder) Build(ctx context.Context, alert model.AlertInput) (model.PrimaryContext, error) {
	prompt := fmt.Sprintf("Build the primary context for this alert.\n\n%s", toJSON(alert))

	return generate(ctx, b.r, builderSystemPrompt, prompt, "primary_context_package", func(pc *model.PrimaryContext) error {
		// 알림 메타데이터는 입력값이 기준
		pc.AlertMetadata = model.AlertMetadata{
			AlertName:       alert.AlertName,
			Severity:        alert.Severity,
			FiringCondition: alert.FiringCondition,
			TriggerTime:     alert.Timestamp,
		}
		// 모델이 비워 둔 컴포넌트는 라벨에서 채움
		c := &pc.AffectedComponents
		c.Service = firstNonNil(c.Service, alert.Label("service"))
		c.Namespace = firstNonNil(c.Namespace, alert.Label("namespace"))
		c.Pod = firstNonNil(c.Pod, alert.Label("pod"))
		c.Node = firstNonNil(c.Node, alert.Label("node"))
		pc.Normalize()
		return nil
	})
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
