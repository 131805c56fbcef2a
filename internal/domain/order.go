package domain

import (
	"context"
	"time"
)

type OrderStatus string

const (
	OrderCreated    OrderStatus = "CREATED"
	OrderAssigned   OrderStatus = "ASSIGNED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderFinished   OrderStatus = "FINISHED"
)

type Laboratory struct {
	ID        string
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

type Order struct {
	ID            string
	PatientID     string
	RequestedTest string
	Status        OrderStatus
	LabID         string
	LabCode       string
	AssignedAt    *time.Time
	CreatedAt     time.Time
}

// OrderFilter narrows order listings. Zero values mean "no filter".
type OrderFilter struct {
	Status    OrderStatus
	LabCode   string
	PatientID string
	Limit     int
	Offset    int
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
}

type LaboratoryRepository interface {
	Create(ctx context.Context, lab *Laboratory) error
	Update(ctx context.Context, lab *Laboratory) error
	GetByID(ctx context.Context, id string) (*Laboratory, error)
	GetByCode(ctx context.Context, code string) (*Laboratory, error)
	List(ctx context.Context) ([]Laboratory, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
