package port

import (
	"context"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, job *entity.Job) error
}
