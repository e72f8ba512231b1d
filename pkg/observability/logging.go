package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
)

// LoggingHooks writes one structured record per lifecycle event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResolved: func(ctx context.Context, e *domain.ResolutionEvent) {
			logger.DebugContext(ctx, "variable_resolved",
				"session_id", e.SessionID,
				"variable", e.Variable,
				"source", e.Kind,
				"outcome", e.Outcome,
			)
		},
		OnTriggerSatisfied: func(ctx context.Context, e *domain.TriggerEvent) {
			logger.InfoContext(ctx, "trigger_satisfied",
				"session_id", e.SessionID,
				"variable", e.Variable,
				"trigger", e.TriggerID,
			)
		},
		OnFlip: func(ctx context.Context, e *domain.TriggerEvent) {
			logger.InfoContext(ctx, "variable_flipped",
				"session_id", e.SessionID,
				"variable", e.Variable,
				"value", e.Value,
			)
		},
		OnBootstrap: func(ctx context.Context, d time.Duration, err error) {
			if err != nil {
				logger.ErrorContext(ctx, "bootstrap_failed", "duration", d, "err", err)
				return
			}
			logger.InfoContext(ctx, "bootstrap_complete", "duration", d)
		},
	}
}
