package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
	"labtrust/internal/infra/keys"
	"labtrust/internal/usecase"
)

// AuthServer exposes the identity issuer: credential login, the published
// key set, and administrative user management.
type AuthServer struct {
	auth        *usecase.AuthService
	users       *usecase.UserService
	publisher   *keys.Publisher
	authz       domain.Authorizer
	limiter     domain.RateLimiter
	loginLimit  int
	loginWindow time.Duration
	log         zerolog.Logger
}

func NewAuthServer(
	auth *usecase.AuthService,
	users *usecase.UserService,
	publisher *keys.Publisher,
	authz domain.Authorizer,
	limiter domain.RateLimiter,
	loginLimit int,
	loginWindow time.Duration,
	log zerolog.Logger,
) *AuthServer {
	return &AuthServer{
		auth:        auth,
		users:       users,
		publisher:   publisher,
		authz:       authz,
		limiter:     limiter,
		loginLimit:  loginLimit,
		loginWindow: loginWindow,
		log:         log,
	}
}

// Router wires the route table. Login and the key set are anonymous; user
// and role management requires ADMIN, except /users/me which any
// authenticated principal may read.
func (s *AuthServer) Router(verifier TokenVerifier) *gin.Engine {
	router := newRouter(s.log)
	router.GET("/healthz", handleHealthz)
	router.GET("/.well-known/jwks.json", s.handleJWKS)
	router.POST("/auth/login",
		rateLimit(s.limiter, "auth:login", s.loginLimit, s.loginWindow),
		s.handleLogin)

	authed := router.Group("/", authenticate(verifier))
	authed.GET("/users/me", s.handleMe)
	authed.GET("/users", s.handleListUsers)
	authed.POST("/users", s.handleCreateUser)
	authed.GET("/users/:id", s.handleGetUser)
	authed.PUT("/users/:id", s.handleUpdateUser)
	authed.DELETE("/users/:id", s.handleDeleteUser)
	authed.GET("/roles", s.handleListRoles)
	return router
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
	UserID    string   `json:"userId"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	LabCode   string   `json:"labCode,omitempty"`
}

func (s *AuthServer) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "username and password are required")
		return
	}
	result, err := s.auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Unix(),
		UserID:    result.UserID,
		Username:  result.Username,
		Roles:     result.Roles,
		LabCode:   result.LabCode,
	})
}

func (s *AuthServer) handleJWKS(c *gin.Context) {
	c.JSON(http.StatusOK, s.publisher.CurrentKeySet())
}

type userResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Active    bool     `json:"active"`
	LabCode   string   `json:"labCode,omitempty"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"createdAt"`
}

func toUserResponse(user *domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Active:    user.Active,
		LabCode:   user.LabCode,
		Roles:     user.RoleNames(),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *AuthServer) handleMe(c *gin.Context) {
	principal := principalFrom(c)
	if err := s.authz.RequireAuthenticated(c.Request.Context(), principal); err != nil {
		writeDomainError(c, err)
		return
	}
	user, err := s.users.GetByUsername(c.Request.Context(), principal.Subject)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *AuthServer) requireAdmin(c *gin.Context) bool {
	if err := s.authz.RequireRole(c.Request.Context(), principalFrom(c), domain.RoleAdmin); err != nil {
		writeDomainError(c, err)
		return false
	}
	return true
}

type createUserRequest struct {
	Username string   `json:"username" binding:"required"`
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Roles    []string `json:"roles" binding:"required"`
	LabCode  string   `json:"labCode"`
}

func (s *AuthServer) handleCreateUser(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid user payload")
		return
	}
	user, err := s.users.Create(c.Request.Context(), usecase.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
		LabCode:  req.LabCode,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

type updateUserRequest struct {
	Email    *string  `json:"email"`
	Password *string  `json:"password"`
	Roles    []string `json:"roles"`
	LabCode  *string  `json:"labCode"`
	Active   *bool    `json:"active"`
}

func (s *AuthServer) handleUpdateUser(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid user payload")
		return
	}
	user, err := s.users.Update(c.Request.Context(), c.Param("id"), usecase.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
		LabCode:  req.LabCode,
		Active:   req.Active,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *AuthServer) handleGetUser(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	user, err := s.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *AuthServer) handleListUsers(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *AuthServer) handleDeleteUser(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if err := s.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type roleResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *AuthServer) handleListRoles(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	roles, err := s.users.ListRoles(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{Name: role.Name, Description: role.Description})
	}
	c.JSON(http.StatusOK, out)
}
