package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/token"
)

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
	LabCode  string
}

type UpdateUserInput struct {
	Email    *string
	Password *string
	Roles    []string
	LabCode  *string
	Active   *bool
}

// UserService implements the administrative user operations of the issuer.
type UserService struct {
	users  domain.UserRepository
	roles  domain.RoleRepository
	hasher domain.PasswordHasher
	now    func() time.Time
	log    zerolog.Logger
}

func NewUserService(users domain.UserRepository, roles domain.RoleRepository, hasher domain.PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		roles:  roles,
		hasher: hasher,
		now:    time.Now,
		log:    log,
	}
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if taken, err := s.users.ExistsByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: username already in use", domain.ErrConflict)
	}
	if taken, err := s.users.ExistsByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: email already in use", domain.ErrConflict)
	}

	roles, err := s.resolveRoles(ctx, in.Roles)
	if err != nil {
		return nil, err
	}
	if hasRole(roles, domain.RoleLabTech) && in.LabCode == "" {
		return nil, fmt.Errorf("%w: labCode is required for %s", domain.ErrInvalidArgument, domain.RoleLabTech)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       true,
		LabCode:      in.LabCode,
		Roles:        roles,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", user.Username).Msg("user created")
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Roles != nil {
		roles, err := s.resolveRoles(ctx, in.Roles)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.LabCode != nil {
		user.LabCode = *in.LabCode
	}
	if in.Active != nil {
		user.Active = *in.Active
	}

	if user.HasRole(domain.RoleLabTech) && user.LabCode == "" {
		return nil, fmt.Errorf("%w: labCode is required for %s", domain.ErrInvalidArgument, domain.RoleLabTech)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

// resolveRoles maps case-insensitive role names to stored roles; at least
// one valid role is required.
func (s *UserService) resolveRoles(ctx context.Context, names []string) ([]domain.Role, error) {
	normalized := token.NormalizeRoles(names)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", domain.ErrInvalidArgument)
	}
	roles := make([]domain.Role, 0, len(normalized))
	for _, name := range normalized {
		role, err := s.roles.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, name)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func hasRole(roles []domain.Role, name string) bool {
	for _, r := range roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
