package order

import (
	"context"
	"encoding/json"
	"fmt"

	"orderdesk-be/internal/logger"
	"orderdesk-be/internal/metrics"

	"go.uber.org/zap"
)

type Service interface {
	ListOrders(ctx context.Context, status string) ([]*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	CreateOrder(ctx context.Context, in WriteOrderInput) (*Order, error)
	ReplaceOrder(ctx context.Context, id int64, in WriteOrderInput) (*Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	AddItem(ctx context.Context, orderID int64, raw json.RawMessage) (*Order, error)
	SetItemQuantity(ctx context.Context, orderID, itemID int64, quantity int) (*Order, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ListOrders returns all orders, or only those whose status matches exactly
// when status is non-empty.
func (s *service) ListOrders(ctx context.Context, status string) ([]*Order, error) {
	var filter Filter
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	return s.repo.ListOrders(ctx, filter)
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *service) CreateOrder(ctx context.Context, in WriteOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)

	o, lines, err := s.validateWrite(ctx, in)
	if err != nil {
		metrics.RejectedWrites.Inc()
		log.Warn("order rejected", zap.Error(err))
		return nil, err
	}

	return s.repo.CreateOrder(ctx, o, lines)
}

// ReplaceOrder is a full replacement: every field and the whole items list
// must be supplied.
func (s *service) ReplaceOrder(ctx context.Context, id int64, in WriteOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ReplaceOrder"),
		zap.Int64("order_id", id),
	)

	o, lines, err := s.validateWrite(ctx, in)
	if err != nil {
		metrics.RejectedWrites.Inc()
		log.Warn("order replacement rejected", zap.Error(err))
		return nil, err
	}
	o.ID = id

	return s.repo.ReplaceOrder(ctx, o, lines)
}

func (s *service) DeleteOrder(ctx context.Context, id int64) error {
	return s.repo.DeleteOrder(ctx, id)
}

func (s *service) AddItem(ctx context.Context, orderID int64, raw json.RawMessage) (*Order, error) {
	line, err := ValidateLineItem(ctx, raw, s.repo)
	if err != nil {
		metrics.RejectedWrites.Inc()
		logger.FromCtx(ctx).Warn("line item rejected",
			zap.String("method", "AddItem"),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}
	return s.repo.AddLineItem(ctx, orderID, line)
}

func (s *service) SetItemQuantity(ctx context.Context, orderID, itemID int64, quantity int) (*Order, error) {
	if quantity < MinQuantity {
		metrics.RejectedWrites.Inc()
		return nil, fmt.Errorf("%w: quantity of item %d cannot be less than %d", ErrQuantityBelowMin, itemID, MinQuantity)
	}
	if quantity > MaxQuantity {
		metrics.RejectedWrites.Inc()
		return nil, fmt.Errorf("%w: quantity of item %d cannot exceed %d", ErrQuantityOutOfRange, itemID, MaxQuantity)
	}
	return s.repo.UpdateLineItemQuantity(ctx, orderID, LineItemInput{ItemID: itemID, Quantity: quantity})
}

func (s *service) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	return s.repo.RemoveLineItem(ctx, orderID, itemID)
}

func (s *service) validateWrite(ctx context.Context, in WriteOrderInput) (*Order, []LineItemInput, error) {
	table, status, err := ValidateOrderFields(in)
	if err != nil {
		return nil, nil, err
	}

	lines, err := ValidateLineItems(ctx, in.Items, s.repo)
	if err != nil {
		return nil, nil, err
	}

	return &Order{Status: status, TableNumber: table}, lines, nil
}
