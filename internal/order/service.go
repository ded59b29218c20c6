// Package order holds the persisted order model and the history service.
// Orders are created once by checkout submission and afterwards change only
// through status transitions; they are never deleted.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

const collection = "orders"

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusFulfilled: true, StatusCancelled: true},
	StatusFulfilled: {StatusShipped: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

var ErrInvalidStatusTransition = errors.New("invalid order status transition")

// Records is the slice of the record store the service uses.
type Records interface {
	List(ctx context.Context, collection string, filter map[string]string, out any) error
	Get(ctx context.Context, collection, id string, out any) error
	Patch(ctx context.Context, collection, id string, body, out any) error
}

type Service struct {
	records Records
}

func NewService(records Records) *Service {
	return &Service{records: records}
}

// ListByOwner returns the owner's orders in store order.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	var orders []Order
	if err := s.records.List(ctx, collection, map[string]string{"ownerId": ownerID}, &orders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := s.records.Get(ctx, collection, id, &o); err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus validates the transition against the current stored status
// and patches the order. Setting the same status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus Status) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if current.Status == newStatus {
		log.Info().Str("order_id", id).Stringer("status", newStatus).Msg("order: status already set, nothing to do")
		return nil
	}

	if !allowedTransitions[current.Status][newStatus] {
		log.Warn().
			Str("order_id", id).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("order: invalid status transition attempt")
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.records.Patch(ctx, collection, id, map[string]any{"status": newStatus}, nil); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	log.Info().Str("order_id", id).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("order: status updated")
	return nil
}

// Cancel moves the order to cancelled; permitted from pending and paid only.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}
