package notify

import (
	"context"

	"signal_engine/internal/models"
	"signal_engine/pkg/logger"
)

// Stdout: события в лог.
type Stdout struct{}

func (Stdout) Name() string { return "stdout" }

func (Stdout) Deliver(_ context.Context, ev models.Event) error {
	logger.Info("[NOTIFY] %s", Format(ev))
	return nil
}
