package implementation

import (
	"context"
	"errors"

	"sarathi-be/internal/entity"
	"sarathi-be/internal/mapper"
	"sarathi-be/internal/model"
	"sarathi-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PassageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PassageMapper
}

func NewPassageRepository(db *gorm.DB) contract.PassageRepository {
	return &PassageRepositoryImpl{
		db:     db,
		mapper: mapper.NewPassageMapper(),
	}
}

func (r *PassageRepositoryImpl) Create(ctx context.Context, passage *entity.Passage) error {
	m := r.mapper.ToModel(passage)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*passage = *r.mapper.ToEntity(m)
	return nil
}

func (r *PassageRepositoryImpl) CreateBulk(ctx context.Context, passages []*entity.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	models := make([]*model.Passage, len(passages))
	for i, e := range passages {
		models[i] = r.mapper.ToModel(e)
	}

	// Batched insert, re-seeding the same corpus should not blow up on
	// the ref_key unique index.
	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}

	for i, m := range models {
		*passages[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *PassageRepositoryImpl) FindByRefKey(ctx context.Context, refKey string) (*entity.Passage, error) {
	var m model.Passage
	if err := r.db.WithContext(ctx).Where("ref_key = ?", refKey).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PassageRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Passage{}).Count(&count).Error
	return count, err
}

func (r *PassageRepositoryImpl) SemanticSearch(ctx context.Context, embedding []float32, limit int, collections []string) ([]*contract.ScoredPassage, error) {
	if limit <= 0 {
		limit = 10
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding <=> query_vector) = cosine_similarity
	type result struct {
		model.Passage
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("passages").
		Select("passages.*, 1 - (embedding <=> ?) as similarity", queryVector)

	if len(collections) > 0 {
		query = query.Where("collection IN ?", collections)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredPassage, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredPassage{
			Passage: r.mapper.ToEntity(&res.Passage),
			Score:   res.Similarity,
		}
	}
	return scored, nil
}

func (r *PassageRepositoryImpl) KeywordSearch(ctx context.Context, queryText string, limit int, collections []string) ([]*contract.ScoredPassage, error) {
	if limit <= 0 {
		limit = 10
	}

	// plainto_tsquery handles user text safely (no tsquery syntax errors)
	type result struct {
		model.Passage
		Rank float64
	}
	var results []result

	query := r.db.WithContext(ctx).
		Table("passages").
		Select("passages.*, ts_rank(to_tsvector('english', text), plainto_tsquery('english', ?)) as rank", queryText).
		Where("to_tsvector('english', text) @@ plainto_tsquery('english', ?)", queryText)

	if len(collections) > 0 {
		query = query.Where("collection IN ?", collections)
	}

	err := query.
		Order("rank DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredPassage, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredPassage{
			Passage: r.mapper.ToEntity(&res.Passage),
			Score:   res.Rank,
		}
	}
	return scored, nil
}
