package mapper

import (
	"encoding/json"

	"sarathi-be/internal/entity"
	"sarathi-be/internal/model"

	"gorm.io/datatypes"
)

type TurnLogMapper struct{}

func NewTurnLogMapper() *TurnLogMapper {
	return &TurnLogMapper{}
}

func (m *TurnLogMapper) ToEntity(e *model.TurnLog) *entity.TurnLog {
	if e == nil {
		return nil
	}

	var payload map[string]interface{}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}

	return &entity.TurnLog{
		Id:           e.Id,
		SessionId:    e.SessionId,
		Phase:        e.Phase,
		GuidanceType: e.GuidanceType,
		TurnCount:    e.TurnCount,
		Payload:      payload,
		CreatedAt:    e.CreatedAt,
	}
}

func (m *TurnLogMapper) ToModel(e *entity.TurnLog) *model.TurnLog {
	if e == nil {
		return nil
	}

	var payload datatypes.JSON
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err == nil {
			payload = raw
		}
	}

	return &model.TurnLog{
		Id:           e.Id,
		SessionId:    e.SessionId,
		Phase:        e.Phase,
		GuidanceType: e.GuidanceType,
		TurnCount:    e.TurnCount,
		Payload:      payload,
		CreatedAt:    e.CreatedAt,
	}
}

func (m *TurnLogMapper) ToEntities(logs []*model.TurnLog) []*entity.TurnLog {
	entities := make([]*entity.TurnLog, len(logs))
	for i, e := range logs {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
