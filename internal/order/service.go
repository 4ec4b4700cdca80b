package order

import (
	"context"
	"errors"
	"log"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
)

// Placer is implemented by *Engine.
type Placer interface {
	PlaceOrder(ctx context.Context, accountID int64, contact ContactInfo) (*Order, error)
}

// EventPublisher announces committed orders.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
	PublishStockDepleted(ctx context.Context, o *Order) error
}

type Service struct {
	engine    Placer
	repo      Repository
	publisher EventPublisher
	logger    *log.Logger
	metrics   *metrics.Metrics
}

func NewService(engine Placer, repo Repository, publisher EventPublisher, logger *log.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{engine: engine, repo: repo, publisher: publisher, logger: logger, metrics: m}
}

// Checkout places the order and then publishes its events. Publishing happens
// after commit; a broker failure is logged and does not undo the order.
func (s *Service) Checkout(ctx context.Context, accountID int64, contact ContactInfo) (*Order, error) {
	o, err := s.engine.PlaceOrder(ctx, accountID, contact)
	if err != nil {
		reason := failureReason(err)
		s.metrics.CheckoutFailed(reason)
		if reason == metrics.ReasonTransient || reason == metrics.ReasonError {
			s.logger.Printf("checkout: account %d failed: %v", accountID, err)
		}
		return nil, err
	}
	s.metrics.OrderPlaced()
	s.logger.Printf("checkout: order %d placed for account %d (%d items, total %s)", o.ID, accountID, len(o.Items), o.Total().StringFixed(2))

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, o); err != nil {
			s.logger.Printf("checkout: publish order placed %d: %v", o.ID, err)
		}
		if len(o.Depleted) > 0 {
			if err := s.publisher.PublishStockDepleted(ctx, o); err != nil {
				s.logger.Printf("checkout: publish stock depleted %d: %v", o.ID, err)
			}
		}
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, accountID, orderID int64) (*Order, error) {
	return s.repo.GetByID(ctx, accountID, orderID)
}

func (s *Service) List(ctx context.Context, accountID int64) ([]*Order, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func failureReason(err error) string {
	var (
		stockErr      *InsufficientStockError
		validationErr *ValidationError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return metrics.ReasonEmptyCart
	case errors.As(err, &stockErr):
		return metrics.ReasonInsufficientStock
	case errors.As(err, &validationErr):
		return metrics.ReasonValidation
	case errors.Is(err, db.ErrTransient):
		return metrics.ReasonTransient
	default:
		return metrics.ReasonError
	}
}
