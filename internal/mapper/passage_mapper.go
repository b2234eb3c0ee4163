package mapper

import (
	"encoding/json"
	"time"

	"sarathi-be/internal/entity"
	"sarathi-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type PassageMapper struct{}

func NewPassageMapper() *PassageMapper {
	return &PassageMapper{}
}

func (m *PassageMapper) ToEntity(e *model.Passage) *entity.Passage {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var tags []string
	if len(e.Tags) > 0 {
		_ = json.Unmarshal(e.Tags, &tags)
	}

	return &entity.Passage{
		Id:         e.Id,
		RefKey:     e.RefKey,
		Text:       e.Text,
		Collection: e.Collection,
		Tags:       tags,
		Embedding:  e.Embedding.Slice(),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *PassageMapper) ToModel(e *entity.Passage) *model.Passage {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	var tags datatypes.JSON
	if len(e.Tags) > 0 {
		raw, err := json.Marshal(e.Tags)
		if err == nil {
			tags = raw
		}
	}

	return &model.Passage{
		Id:         e.Id,
		RefKey:     e.RefKey,
		Text:       e.Text,
		Collection: e.Collection,
		Tags:       tags,
		Embedding:  pgvector.NewVector(e.Embedding),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *PassageMapper) ToEntities(passages []*model.Passage) []*entity.Passage {
	entities := make([]*entity.Passage, len(passages))
	for i, e := range passages {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *PassageMapper) ToModels(passages []*entity.Passage) []*model.Passage {
	models := make([]*model.Passage, len(passages))
	for i, e := range passages {
		models[i] = m.ToModel(e)
	}
	return models
}
