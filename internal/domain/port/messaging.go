package port

import (
	"context"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg entity.PaletteStatusMessage) error
}

// DLQPublisher parks a raw delivery that can never succeed.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, body []byte, reason string) error
}
