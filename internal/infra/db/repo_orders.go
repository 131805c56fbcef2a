package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"labtrust/internal/domain"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toOrderModel(order)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toOrderModel(order)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Laboratory").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	order := toDomainOrder(model)
	return &order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&OrderModel{}).Preload("Laboratory")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.LabCode != "" {
		query = query.Where("lab_id IN (?)",
			r.db.Model(&LaboratoryModel{}).Select("id").Where("code = ?", filter.LabCode))
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var models []OrderModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(models))
	for _, m := range models {
		orders = append(orders, toDomainOrder(m))
	}
	return orders, nil
}

func toOrderModel(order *domain.Order) OrderModel {
	model := OrderModel{
		ID:            order.ID,
		PatientID:     order.PatientID,
		RequestedTest: order.RequestedTest,
		Status:        string(order.Status),
		AssignedAt:    order.AssignedAt,
		CreatedAt:     order.CreatedAt,
	}
	if order.LabID != "" {
		labID := order.LabID
		model.LabID = &labID
	}
	return model
}

func toDomainOrder(model OrderModel) domain.Order {
	order := domain.Order{
		ID:            model.ID,
		PatientID:     model.PatientID,
		RequestedTest: model.RequestedTest,
		Status:        domain.OrderStatus(model.Status),
		AssignedAt:    model.AssignedAt,
		CreatedAt:     model.CreatedAt,
	}
	if model.LabID != nil {
		order.LabID = *model.LabID
	}
	if model.Laboratory != nil {
		order.LabCode = model.Laboratory.Code
	}
	return order
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
