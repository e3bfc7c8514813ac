// FILE: internal/mapper/feature_result_mapper.go
// Mapper for FeatureResult entity <-> model conversion
package mapper

import (
	"encoding/json"

	"geoassist-be/internal/entity"
	"geoassist-be/internal/model"

	"gorm.io/datatypes"
)

type FeatureResultMapper struct{}

func NewFeatureResultMapper() *FeatureResultMapper {
	return &FeatureResultMapper{}
}

func (m *FeatureResultMapper) ToEntity(model *model.FeatureResult) *entity.FeatureResult {
	if model == nil {
		return nil
	}
	return &entity.FeatureResult{
		Id:         model.Id,
		UserId:     model.UserId,
		Mode:       model.Mode,
		ResultType: model.ResultType,
		Payload:    json.RawMessage(model.Payload),
		CreatedAt:  model.CreatedAt,
	}
}

func (m *FeatureResultMapper) ToModel(entity *entity.FeatureResult) *model.FeatureResult {
	if entity == nil {
		return nil
	}
	return &model.FeatureResult{
		Id:         entity.Id,
		UserId:     entity.UserId,
		Mode:       entity.Mode,
		ResultType: entity.ResultType,
		Payload:    datatypes.JSON(entity.Payload),
		CreatedAt:  entity.CreatedAt,
	}
}

func (m *FeatureResultMapper) ToEntities(models []*model.FeatureResult) []*entity.FeatureResult {
	entities := make([]*entity.FeatureResult, 0, len(models))
	for _, mdl := range models {
		entities = append(entities, m.ToEntity(mdl))
	}
	return entities
}
