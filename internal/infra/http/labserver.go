package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"labtrust/internal/domain"
	"labtrust/internal/usecase"
)

// LabServer exposes the lab service: the laboratory catalog and the order
// lifecycle. Tokens are verified remotely against the issuer's key set.
type LabServer struct {
	labs   *usecase.LabService
	orders *usecase.OrderService
	authz  domain.Authorizer
	log    zerolog.Logger
}

func NewLabServer(labs *usecase.LabService, orders *usecase.OrderService, authz domain.Authorizer, log zerolog.Logger) *LabServer {
	return &LabServer{labs: labs, orders: orders, authz: authz, log: log}
}

// Router wires the route table. Catalog writes require ADMIN; catalog reads
// any authenticated principal; order visibility is enforced per-order by the
// service layer.
func (s *LabServer) Router(verifier TokenVerifier) *gin.Engine {
	router := newRouter(s.log)
	router.GET("/healthz", handleHealthz)

	authed := router.Group("/", authenticate(verifier))
	authed.GET("/labs", s.handleListLabs)
	authed.GET("/labs/:id", s.handleGetLab)
	authed.POST("/labs", s.handleCreateLab)
	authed.PUT("/labs/:id", s.handleUpdateLab)
	authed.POST("/labs/:id/activate", s.handleActivateLab)
	authed.POST("/labs/:id/deactivate", s.handleDeactivateLab)

	authed.POST("/orders", s.handleCreateOrder)
	authed.GET("/orders", s.handleListOrders)
	authed.GET("/orders/:id", s.handleGetOrder)
	authed.POST("/orders/:id/assign", s.handleAssignOrder)
	authed.POST("/orders/:id/start", s.handleStartOrder)
	authed.POST("/orders/:id/finish", s.handleFinishOrder)
	return router
}

func (s *LabServer) requireAdmin(c *gin.Context) bool {
	if err := s.authz.RequireRole(c.Request.Context(), principalFrom(c), domain.RoleAdmin); err != nil {
		writeDomainError(c, err)
		return false
	}
	return true
}

func (s *LabServer) requireAuthenticated(c *gin.Context) bool {
	if err := s.authz.RequireAuthenticated(c.Request.Context(), principalFrom(c)); err != nil {
		writeDomainError(c, err)
		return false
	}
	return true
}

type labResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
}

func toLabResponse(lab *domain.Laboratory) labResponse {
	return labResponse{
		ID:        lab.ID,
		Code:      lab.Code,
		Name:      lab.Name,
		Active:    lab.Active,
		CreatedAt: lab.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type createLabRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name"`
}

func (s *LabServer) handleCreateLab(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req createLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid laboratory payload")
		return
	}
	lab, err := s.labs.Create(c.Request.Context(), usecase.CreateLabInput{Code: req.Code, Name: req.Name})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLabResponse(lab))
}

type updateLabRequest struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

func (s *LabServer) handleUpdateLab(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var req updateLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid laboratory payload")
		return
	}
	lab, err := s.labs.Update(c.Request.Context(), c.Param("id"), usecase.UpdateLabInput{Code: req.Code, Name: req.Name})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabResponse(lab))
}

func (s *LabServer) handleGetLab(c *gin.Context) {
	if !s.requireAuthenticated(c) {
		return
	}
	lab, err := s.labs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabResponse(lab))
}

func (s *LabServer) handleListLabs(c *gin.Context) {
	if !s.requireAuthenticated(c) {
		return
	}
	labs, err := s.labs.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]labResponse, 0, len(labs))
	for i := range labs {
		out = append(out, toLabResponse(&labs[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *LabServer) handleActivateLab(c *gin.Context) {
	s.setLabActive(c, true)
}

func (s *LabServer) handleDeactivateLab(c *gin.Context) {
	s.setLabActive(c, false)
}

func (s *LabServer) setLabActive(c *gin.Context, active bool) {
	if !s.requireAdmin(c) {
		return
	}
	lab, err := s.labs.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabResponse(lab))
}

type orderResponse struct {
	ID            string `json:"id"`
	PatientID     string `json:"patientId"`
	RequestedTest string `json:"requestedTest"`
	Status        string `json:"status"`
	LabCode       string `json:"labCode,omitempty"`
	AssignedAt    string `json:"assignedAt,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		PatientID:     order.PatientID,
		RequestedTest: order.RequestedTest,
		Status:        string(order.Status),
		LabCode:       order.LabCode,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
	}
	if order.AssignedAt != nil {
		resp.AssignedAt = order.AssignedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type createOrderRequest struct {
	PatientID     string `json:"patientId" binding:"required"`
	RequestedTest string `json:"requestedTest" binding:"required"`
	LabCode       string `json:"labCode"`
}

func (s *LabServer) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid order payload")
		return
	}
	order, err := s.orders.Create(c.Request.Context(), principalFrom(c), usecase.CreateOrderInput{
		PatientID:     req.PatientID,
		RequestedTest: req.RequestedTest,
		LabCode:       req.LabCode,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

type assignOrderRequest struct {
	LabCode string `json:"labCode" binding:"required"`
}

func (s *LabServer) handleAssignOrder(c *gin.Context) {
	var req assignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "labCode is required")
		return
	}
	order, err := s.orders.Assign(c.Request.Context(), principalFrom(c), c.Param("id"), req.LabCode)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *LabServer) handleStartOrder(c *gin.Context) {
	order, err := s.orders.Start(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *LabServer) handleFinishOrder(c *gin.Context) {
	order, err := s.orders.Finish(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *LabServer) handleGetOrder(c *gin.Context) {
	order, err := s.orders.GetByID(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *LabServer) handleListOrders(c *gin.Context) {
	filter := domain.OrderFilter{
		Status:    domain.OrderStatus(c.Query("status")),
		LabCode:   c.Query("labCode"),
		PatientID: c.Query("patientId"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}
	orders, err := s.orders.List(c.Request.Context(), principalFrom(c), filter)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, out)
}
