package cart

import (
	"context"
	"log"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
)

// Mutation names reported to metrics.
const (
	OpAdd    = "add"
	OpChange = "change"
	OpRemove = "remove"
	OpMerge  = "merge"
)

// Service validates cart requests and returns the rendered cart after each
// mutation.
type Service struct {
	repo    Repository
	logger  *log.Logger
	metrics *metrics.Metrics
}

func NewService(repo Repository, logger *log.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger, metrics: m}
}

type AddResult struct {
	Line    Line
	Created bool
	View    View
}

func (s *Service) Add(ctx context.Context, owner Owner, productID int64) (AddResult, error) {
	if err := owner.Validate(); err != nil {
		return AddResult{}, err
	}
	line, created, err := s.repo.AddOrIncrement(ctx, owner, productID)
	if err != nil {
		return AddResult{}, err
	}
	s.metrics.CartMutation(OpAdd)

	view, err := s.repo.ListDetailed(ctx, owner)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Line: line, Created: created, View: view}, nil
}

func (s *Service) Change(ctx context.Context, owner Owner, lineID int64, quantity int) (Line, View, error) {
	if !validQuantity(quantity) {
		return Line{}, View{}, ErrInvalidQuantity
	}
	if err := owner.Validate(); err != nil {
		return Line{}, View{}, err
	}
	line, err := s.repo.SetQuantity(ctx, owner, lineID, quantity)
	if err != nil {
		return Line{}, View{}, err
	}
	s.metrics.CartMutation(OpChange)

	view, err := s.repo.ListDetailed(ctx, owner)
	if err != nil {
		return Line{}, View{}, err
	}
	return line, view, nil
}

// Remove deletes the line and reports how many units it held.
func (s *Service) Remove(ctx context.Context, owner Owner, lineID int64) (int, View, error) {
	if err := owner.Validate(); err != nil {
		return 0, View{}, err
	}
	removed, err := s.repo.Remove(ctx, owner, lineID)
	if err != nil {
		return 0, View{}, err
	}
	s.metrics.CartMutation(OpRemove)

	view, err := s.repo.ListDetailed(ctx, owner)
	if err != nil {
		return 0, View{}, err
	}
	return removed, view, nil
}

func (s *Service) View(ctx context.Context, owner Owner) (View, error) {
	if err := owner.Validate(); err != nil {
		return View{}, err
	}
	return s.repo.ListDetailed(ctx, owner)
}

func (s *Service) Lines(ctx context.Context, owner Owner) ([]Line, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListFor(ctx, owner)
}

// MergeSession hands an anonymous cart over to the account that just signed in.
func (s *Service) MergeSession(ctx context.Context, sessionKey string, accountID int64) (int, error) {
	merged, err := s.repo.MergeSession(ctx, sessionKey, accountID)
	if err != nil {
		return 0, err
	}
	if merged > 0 {
		s.metrics.CartMutation(OpMerge)
		s.logger.Printf("cart: merged %d session lines into account %d", merged, accountID)
	}
	return merged, nil
}
