package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
)

type CreateOrderInput struct {
	PatientID     string
	RequestedTest string
	LabCode       string
}

// OrderService drives the order lifecycle:
//
//	CREATED -> ASSIGNED -> IN_PROGRESS -> FINISHED
//
// Creation may land directly in ASSIGNED when a laboratory is supplied.
// FINISHED is terminal. Reads are tenant-gated through the authorizer;
// an order with no laboratory has no tenant owner and is admin-only.
type OrderService struct {
	orders domain.OrderRepository
	labs   domain.LaboratoryRepository
	authz  domain.Authorizer
	now    func() time.Time
	log    zerolog.Logger
}

func NewOrderService(orders domain.OrderRepository, labs domain.LaboratoryRepository, authz domain.Authorizer, log zerolog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		labs:   labs,
		authz:  authz,
		now:    time.Now,
		log:    log,
	}
}

func (s *OrderService) Create(ctx context.Context, p *domain.Principal, in CreateOrderInput) (*domain.Order, error) {
	if err := s.authz.RequireAuthenticated(ctx, p); err != nil {
		return nil, err
	}
	order := &domain.Order{
		ID:            uuid.NewString(),
		PatientID:     in.PatientID,
		RequestedTest: in.RequestedTest,
		Status:        domain.OrderCreated,
		CreatedAt:     s.now().UTC(),
	}
	if in.LabCode != "" {
		lab, err := s.labs.GetByCode(ctx, in.LabCode)
		if err != nil {
			return nil, fmt.Errorf("%w: laboratory %q", domain.ErrNotFound, in.LabCode)
		}
		assignedAt := s.now().UTC()
		order.LabID = lab.ID
		order.LabCode = lab.Code
		order.Status = domain.OrderAssigned
		order.AssignedAt = &assignedAt
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", order.ID).Str("status", string(order.Status)).Msg("order created")
	return order, nil
}

func (s *OrderService) Assign(ctx context.Context, p *domain.Principal, orderID, labCode string) (*domain.Order, error) {
	if err := s.authz.RequireAuthenticated(ctx, p); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lab, err := s.labs.GetByCode(ctx, labCode)
	if err != nil {
		return nil, fmt.Errorf("%w: laboratory %q", domain.ErrNotFound, labCode)
	}
	if order.Status == domain.OrderFinished {
		return nil, fmt.Errorf("%w: cannot assign a FINISHED order", domain.ErrInvalidTransition)
	}
	assignedAt := s.now().UTC()
	order.LabID = lab.ID
	order.LabCode = lab.Code
	order.Status = domain.OrderAssigned
	order.AssignedAt = &assignedAt
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", order.ID).Str("lab", lab.Code).Msg("order assigned")
	return order, nil
}

func (s *OrderService) Start(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	return s.transition(ctx, p, orderID, domain.OrderAssigned, domain.OrderInProgress,
		"only ASSIGNED orders can move to IN_PROGRESS")
}

func (s *OrderService) Finish(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	return s.transition(ctx, p, orderID, domain.OrderInProgress, domain.OrderFinished,
		"only IN_PROGRESS orders can move to FINISHED")
}

func (s *OrderService) transition(ctx context.Context, p *domain.Principal, orderID string, from, to domain.OrderStatus, guard string) (*domain.Order, error) {
	if err := s.authz.RequireAuthenticated(ctx, p); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != from {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTransition, guard)
	}
	order.Status = to
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", order.ID).Str("status", string(to)).Msg("order transitioned")
	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, p *domain.Principal, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireTenantMatch(ctx, p, order.LabCode); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders visible to the principal. Admins see everything and
// may filter by lab; anyone else is pinned to their own lab, and a
// principal without a lab code is denied outright.
func (s *OrderService) List(ctx context.Context, p *domain.Principal, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := s.authz.RequireAuthenticated(ctx, p); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		if p.LabCode == "" {
			return nil, fmt.Errorf("%w: no laboratory scope in token", domain.ErrForbidden)
		}
		filter.LabCode = p.LabCode
	}
	return s.orders.List(ctx, filter)
}
