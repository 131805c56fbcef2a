package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
)

// stubVerifier maps opaque bearer strings to claims, keeping handler tests
// independent of the signing stack.
type stubVerifier map[string]domain.Claims

func (s stubVerifier) Verify(_ context.Context, token string) (domain.Claims, bool) {
	claims, ok := s[token]
	return claims, ok
}

func adminToken() (string, domain.Claims) {
	return "admin-token", domain.Claims{Subject: "root", UserID: "u-root", Roles: []string{"ADMIN"}}
}

func techToken(labCode string) (string, domain.Claims) {
	return "tech-" + labCode, domain.Claims{Subject: "bob", UserID: "u-bob", Roles: []string{"LAB_TECH"}, LabCode: labCode}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

// In-memory repositories backing handler tests.

type memUserRepo struct {
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[string]*domain.User{}} }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *memUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(context.Background(), username)
	return err == nil, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type memRoleRepo struct {
	roles map[string]domain.Role
}

func newMemRoleRepo(names ...string) *memRoleRepo {
	r := &memRoleRepo{roles: map[string]domain.Role{}}
	for i, name := range names {
		r.roles[name] = domain.Role{ID: fmt.Sprintf("role-%d", i+1), Name: name}
	}
	return r
}

func (r *memRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &role, nil
}

func (r *memRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memLabRepo struct {
	labs map[string]*domain.Laboratory
}

func newMemLabRepo(codes ...string) *memLabRepo {
	r := &memLabRepo{labs: map[string]*domain.Laboratory{}}
	for i, code := range codes {
		id := fmt.Sprintf("lab-%d", i+1)
		r.labs[id] = &domain.Laboratory{ID: id, Code: code, Name: code, Active: true}
	}
	return r
}

func (r *memLabRepo) Create(_ context.Context, lab *domain.Laboratory) error {
	clone := *lab
	r.labs[lab.ID] = &clone
	return nil
}

func (r *memLabRepo) Update(_ context.Context, lab *domain.Laboratory) error {
	if _, ok := r.labs[lab.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *lab
	r.labs[lab.ID] = &clone
	return nil
}

func (r *memLabRepo) GetByID(_ context.Context, id string) (*domain.Laboratory, error) {
	lab, ok := r.labs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *lab
	return &clone, nil
}

func (r *memLabRepo) GetByCode(_ context.Context, code string) (*domain.Laboratory, error) {
	for _, lab := range r.labs {
		if lab.Code == code {
			clone := *lab
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memLabRepo) List(_ context.Context) ([]domain.Laboratory, error) {
	out := make([]domain.Laboratory, 0, len(r.labs))
	for _, lab := range r.labs {
		out = append(out, *lab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memLabRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	_, err := r.GetByCode(context.Background(), code)
	return err == nil, nil
}

type memOrderRepo struct {
	orders map[string]*domain.Order
}

func newMemOrderRepo() *memOrderRepo { return &memOrderRepo{orders: map[string]*domain.Order{}} }

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, order *domain.Order) error {
	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *memOrderRepo) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
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

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(password, hash string) error {
	if hash != "hashed:"+password {
		return domain.ErrUnauthorized
	}
	return nil
}

var (
	_ domain.UserRepository       = (*memUserRepo)(nil)
	_ domain.RoleRepository       = (*memRoleRepo)(nil)
	_ domain.LaboratoryRepository = (*memLabRepo)(nil)
	_ domain.OrderRepository      = (*memOrderRepo)(nil)
	_ http.Handler                = (*gin.Engine)(nil)
)
