package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"labtrust/internal/domain"
)

type LaboratoryRepository struct {
	db *gorm.DB
}

func NewLaboratoryRepository(db *gorm.DB) *LaboratoryRepository {
	return &LaboratoryRepository{db: db}
}

func (r *LaboratoryRepository) Create(ctx context.Context, lab *domain.Laboratory) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toLabModel(lab)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *LaboratoryRepository) Update(ctx context.Context, lab *domain.Laboratory) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toLabModel(lab)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *LaboratoryRepository) GetByID(ctx context.Context, id string) (*domain.Laboratory, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *LaboratoryRepository) GetByCode(ctx context.Context, code string) (*domain.Laboratory, error) {
	return r.getOne(ctx, "code = ?", code)
}

func (r *LaboratoryRepository) getOne(ctx context.Context, query string, arg any) (*domain.Laboratory, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model LaboratoryModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	lab := toDomainLab(model)
	return &lab, nil
}

func (r *LaboratoryRepository) List(ctx context.Context) ([]domain.Laboratory, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []LaboratoryModel
	if err := r.db.WithContext(ctx).Order("code").Find(&models).Error; err != nil {
		return nil, err
	}
	labs := make([]domain.Laboratory, 0, len(models))
	for _, m := range models {
		labs = append(labs, toDomainLab(m))
	}
	return labs, nil
}

func (r *LaboratoryRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&LaboratoryModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toLabModel(lab *domain.Laboratory) LaboratoryModel {
	return LaboratoryModel{
		ID:        lab.ID,
		Code:      lab.Code,
		Name:      lab.Name,
		Active:    lab.Active,
		CreatedAt: lab.CreatedAt,
	}
}

func toDomainLab(model LaboratoryModel) domain.Laboratory {
	return domain.Laboratory{
		ID:        model.ID,
		Code:      model.Code,
		Name:      model.Name,
		Active:    model.Active,
		CreatedAt: model.CreatedAt,
	}
}

var _ domain.LaboratoryRepository = (*LaboratoryRepository)(nil)
