package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"labtrust/internal/domain"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model RoleModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Role{ID: model.ID, Name: model.Name, Description: model.Description}, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []RoleModel
	if err := r.db.WithContext(ctx).Order("name").Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, domain.Role{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	return roles, nil
}

var _ domain.RoleRepository = (*RoleRepository)(nil)
