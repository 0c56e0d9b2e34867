package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kube-rca/sage/internal/model"
	"go.uber.org/zap"
)

// Analyzer - Stage 3: (PrimaryContext, EnhancedContext) -> DiagnosticReport
type Analyzer struct {
	r runner
}

func NewAnalyzer(gen Generator, policy Policy, logger *zap.Logger) *Analyzer {
	return &Analyzer{r: newRunner(NameRootCause, gen, policy, logger)}
}

func (a *Analyzer) Analyze(ctx context.Context, pc model.PrimaryContext, ec model.EnhancedContext) (model.DiagnosticReport, error) {
	prompt := fmt.Sprintf(
		"Determine the root cause.\n\n## Primary context\n%s\n\n## Enhanced context\n%s",
		toJSON(pc), toJSON(ec),
	)

	return generate(ctx, a.r, rootCauseSystemPrompt, prompt, "incident_diagnostic_report", func(d *model.DiagnosticReport) error {
		d.RootCause = strings.TrimSpace(d.RootCause)
		d.Normalize()
		return nil
	})
}
