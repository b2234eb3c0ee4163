package implementation

import (
	"context"

	"sarathi-be/internal/entity"
	"sarathi-be/internal/mapper"
	"sarathi-be/internal/model"
	"sarathi-be/internal/repository/contract"

	"gorm.io/gorm"
)

type TurnLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TurnLogMapper
}

func NewTurnLogRepository(db *gorm.DB) contract.TurnLogRepository {
	return &TurnLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewTurnLogMapper(),
	}
}

func (r *TurnLogRepositoryImpl) Create(ctx context.Context, log *entity.TurnLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *TurnLogRepositoryImpl) FindBySessionId(ctx context.Context, sessionId string) ([]*entity.TurnLog, error) {
	var models []*model.TurnLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
