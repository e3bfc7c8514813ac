package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FeatureResult struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     string         `gorm:"type:varchar(64);not null;index:idx_feature_results_user_created,priority:1"`
	Mode       string         `gorm:"type:varchar(20);not null;index"`
	ResultType string         `gorm:"type:varchar(50);not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"default:now();not null;index:idx_feature_results_user_created,priority:2"`
}

func (FeatureResult) TableName() string {
	return "feature_results"
}
