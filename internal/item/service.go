package item

import (
	"context"

	"orderdesk-be/internal/logger"

	"go.uber.org/zap"
)

// Service defines the business logic for menu items.
type Service interface {
	ListItems(ctx context.Context) ([]*Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	CreateItem(ctx context.Context, in ItemInput) (*Item, error)
	UpdateItem(ctx context.Context, id int64, in ItemInput) (*Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListItems(ctx context.Context) ([]*Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *service) GetItem(ctx context.Context, id int64) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *service) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	if err := Validate(&in); err != nil {
		logger.FromCtx(ctx).Warn("invalid item input",
			zap.String("method", "CreateItem"),
			zap.Error(err),
		)
		return nil, err
	}
	return s.repo.CreateItem(ctx, in)
}

func (s *service) UpdateItem(ctx context.Context, id int64, in ItemInput) (*Item, error) {
	if err := Validate(&in); err != nil {
		logger.FromCtx(ctx).Warn("invalid item input",
			zap.String("method", "UpdateItem"),
			zap.Int64("item_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return s.repo.UpdateItem(ctx, id, in)
}

func (s *service) DeleteItem(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}
