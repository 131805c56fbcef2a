package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"labtrust/internal/domain"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type fakeRoleRepo struct {
	roles map[string]domain.Role
}

func newFakeRoleRepo(names ...string) *fakeRoleRepo {
	r := &fakeRoleRepo{roles: map[string]domain.Role{}}
	for i, name := range names {
		r.roles[name] = domain.Role{ID: fmt.Sprintf("role-%d", i+1), Name: name}
	}
	return r
}

func (r *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &role, nil
}

func (r *fakeRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeLabRepo struct {
	labs map[string]*domain.Laboratory
}

func newFakeLabRepo(codes ...string) *fakeLabRepo {
	r := &fakeLabRepo{labs: map[string]*domain.Laboratory{}}
	for i, code := range codes {
		id := fmt.Sprintf("lab-%d", i+1)
		r.labs[id] = &domain.Laboratory{ID: id, Code: code, Name: code, Active: true}
	}
	return r
}

func (r *fakeLabRepo) Create(_ context.Context, lab *domain.Laboratory) error {
	clone := *lab
	r.labs[lab.ID] = &clone
	return nil
}

func (r *fakeLabRepo) Update(_ context.Context, lab *domain.Laboratory) error {
	if _, ok := r.labs[lab.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *lab
	r.labs[lab.ID] = &clone
	return nil
}

func (r *fakeLabRepo) GetByID(_ context.Context, id string) (*domain.Laboratory, error) {
	lab, ok := r.labs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *lab
	return &clone, nil
}

func (r *fakeLabRepo) GetByCode(_ context.Context, code string) (*domain.Laboratory, error) {
	for _, lab := range r.labs {
		if lab.Code == code {
			clone := *lab
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeLabRepo) List(_ context.Context) ([]domain.Laboratory, error) {
	out := make([]domain.Laboratory, 0, len(r.labs))
	for _, lab := range r.labs {
		out = append(out, *lab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *fakeLabRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	for _, lab := range r.labs {
		if lab.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type fakeOrderRepo struct {
	orders map[string]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*domain.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *domain.Order) error {
	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *fakeOrderRepo) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.LabCode != "" && order.LabCode != filter.LabCode {
			continue
		}
		if filter.PatientID != "" && order.PatientID != filter.PatientID {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeHasher keeps passwords readable in test assertions.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(password, hash string) error {
	if hash != "hashed:"+password {
		return domain.ErrUnauthorized
	}
	return nil
}

type fakeLimiter struct {
	denyPrefix string
	err        error
	calls      int
}

func (l *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (domain.RateLimitDecision, error) {
	l.calls++
	if l.err != nil {
		return domain.RateLimitDecision{}, l.err
	}
	if l.denyPrefix != "" && strings.HasPrefix(key, l.denyPrefix) {
		return domain.RateLimitDecision{Allowed: false, Limit: limit}, nil
	}
	return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit - 1}, nil
}
