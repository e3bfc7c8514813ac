// FILE: internal/repository/contract/feature_result_repository.go
// Repository interface for persisted workflow results
package contract

import (
	"context"

	"geoassist-be/internal/entity"
	"geoassist-be/internal/repository/specification"
)

type FeatureResultRepository interface {
	Create(ctx context.Context, result *entity.FeatureResult) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FeatureResult, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
