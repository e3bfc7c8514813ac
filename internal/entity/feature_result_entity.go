// FILE: internal/entity/feature_result_entity.go
// Domain entity for finished workflow results
package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FeatureResult is one result produced by a mode workflow (a measurement, a
// workbook row, a geotag...). Payload is the result serialized as JSON.
type FeatureResult struct {
	Id         uuid.UUID
	UserId     string
	Mode       string
	ResultType string
	Payload    json.RawMessage
	CreatedAt  time.Time
}
