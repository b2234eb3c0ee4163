package contract

import (
	"context"

	"sarathi-be/internal/entity"
)

type TurnLogRepository interface {
	Create(ctx context.Context, log *entity.TurnLog) error
	FindBySessionId(ctx context.Context, sessionId string) ([]*entity.TurnLog, error)
}
