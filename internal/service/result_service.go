package service

import (
	"context"

	"geoassist-be/internal/dto"
	"geoassist-be/internal/repository/contract"
	"geoassist-be/internal/repository/specification"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

type IResultService interface {
	List(ctx context.Context, userID, mode string, limit, offset int) ([]*dto.FeatureResultResponse, int64, error)
}

type resultService struct {
	repo contract.FeatureResultRepository
}

func NewResultService(repo contract.FeatureResultRepository) IResultService {
	return &resultService{repo: repo}
}

// List returns a user's stored results, newest first, with the total count.
func (s *resultService) List(ctx context.Context, userID, mode string, limit, offset int) ([]*dto.FeatureResultResponse, int64, error) {
	if limit <= 0 {
		limit = defaultResultsLimit
	}
	if limit > maxResultsLimit {
		limit = maxResultsLimit
	}
	if offset < 0 {
		offset = 0
	}

	filters := []specification.Specification{specification.ByUserID{UserID: userID}}
	if mode != "" {
		filters = append(filters, specification.ByMode{Mode: mode})
	}

	total, err := s.repo.Count(ctx, filters...)
	if err != nil {
		return nil, 0, err
	}

	results, err := s.repo.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)...)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*dto.FeatureResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, &dto.FeatureResultResponse{
			Id:         r.Id.String(),
			Mode:       r.Mode,
			ResultType: r.ResultType,
			Payload:    r.Payload,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, total, nil
}
