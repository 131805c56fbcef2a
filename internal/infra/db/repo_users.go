package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"labtrust/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toUserModel(user)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := toUserModel(user)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&UserModel{ID: model.ID}).Association("Roles").Replace(model.Roles); err != nil {
			return err
		}
		return tx.Save(&model).Error
	})
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Delete(&UserModel{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model UserModel
	err := r.db.WithContext(ctx).Preload("Roles").Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	user := toDomainUser(model)
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []UserModel
	if err := r.db.WithContext(ctx).Preload("Roles").Order("username").Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, toDomainUser(m))
	}
	return users, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toUserModel(user *domain.User) UserModel {
	roles := make([]RoleModel, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, RoleModel{ID: role.ID, Name: role.Name, Description: role.Description})
	}
	return UserModel{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Active:       user.Active,
		LabCode:      user.LabCode,
		Roles:        roles,
		CreatedAt:    user.CreatedAt,
	}
}

func toDomainUser(model UserModel) domain.User {
	roles := make([]domain.Role, 0, len(model.Roles))
	for _, role := range model.Roles {
		roles = append(roles, domain.Role{ID: role.ID, Name: role.Name, Description: role.Description})
	}
	return domain.User{
		ID:           model.ID,
		Username:     model.Username,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		Active:       model.Active,
		LabCode:      model.LabCode,
		Roles:        roles,
		CreatedAt:    model.CreatedAt,
	}
}

var _ domain.UserRepository = (*UserRepository)(nil)
