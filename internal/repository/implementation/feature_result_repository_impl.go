// FILE: internal/repository/implementation/feature_result_repository_impl.go
// Implementation of FeatureResultRepository
package implementation

import (
	"context"

	"geoassist-be/internal/entity"
	"geoassist-be/internal/mapper"
	"geoassist-be/internal/model"
	"geoassist-be/internal/repository/contract"
	"geoassist-be/internal/repository/specification"

	"gorm.io/gorm"
)

type FeatureResultRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FeatureResultMapper
}

func NewFeatureResultRepository(db *gorm.DB) contract.FeatureResultRepository {
	return &FeatureResultRepositoryImpl{
		db:     db,
		mapper: mapper.NewFeatureResultMapper(),
	}
}

func (r *FeatureResultRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FeatureResultRepositoryImpl) Create(ctx context.Context, result *entity.FeatureResult) error {
	m := r.mapper.ToModel(result)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*result = *r.mapper.ToEntity(m)
	return nil
}

func (r *FeatureResultRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FeatureResult, error) {
	var models []*model.FeatureResult
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.FeatureResult{}), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *FeatureResultRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.FeatureResult{}), specs...)
	err := query.Count(&count).Error
	return count, err
}
