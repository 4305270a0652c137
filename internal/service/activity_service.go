package service

import (
	"context"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

type ActivityService interface {
	List(ctx context.Context, limit int) ([]model.Activity, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

// List returns the most recent audit entries
func (s *activityService) List(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return s.repo.FindRecent(ctx, limit)
}
