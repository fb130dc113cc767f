// Repair-order HTTP handlers.
//
// This file exposes REST endpoints for repair-order resources:
//   - GET    /repair-orders               (list, paginated)
//   - POST   /repair-orders               (create)
//   - PUT    /repair-orders/{id}          (edit fields)
//   - POST   /repair-orders/{id}/status   (status transition)
//   - POST   /repair-orders/{id}/archive  (move to archive)
//   - DELETE /repair-orders/{id}          (delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The datastore is a remote
// workbook, so upstream API failures map to 502 rather than 500.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/graph"
	"github.com/skylinemro/ro-dashboard/internal/repo"
	"github.com/skylinemro/ro-dashboard/internal/services"
	"github.com/skylinemro/ro-dashboard/internal/utils"
)

//
// Service contracts (context-aware)
//

// RepairOrderService defines repair-order operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RepairOrderService interface {
	// ListPage returns a page of repair orders and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.RepairOrder, int, error)
	// Create validates and inserts a new repair order.
	Create(ctx context.Context, p repo.AddParams) (*domain.RepairOrder, error)
	// UpdateStatus applies one status transition.
	UpdateStatus(ctx context.Context, id string, req repo.StatusUpdate) (*domain.RepairOrder, error)
	// Update overwrites the user-editable fields.
	Update(ctx context.Context, id string, fields repo.UpdateFields) (*domain.RepairOrder, error)
	// Delete removes a repair order.
	Delete(ctx context.Context, id string) error
	// Archive moves a repair order to the archive table.
	Archive(ctx context.Context, id string) error
}

// ShopService defines shop operations consumed by HTTP handlers.
type ShopService interface {
	List(ctx context.Context) ([]domain.Shop, error)
	Create(ctx context.Context, shop domain.Shop) (*domain.Shop, error)
	Update(ctx context.Context, id string, shop domain.Shop) (*domain.Shop, error)
	Delete(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for repair orders and shops. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	roSvc   RepairOrderService
	shopSvc ShopService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(roSvc RepairOrderService, shopSvc ShopService) *Handlers {
	return &Handlers{roSvc: roSvc, shopSvc: shopSvc}
}

// userID extracts the acting user from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "dashboard". The value lands in history entries and
// idempotency keys.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "dashboard"
}

//
// DTOs
//

// CreateRepairOrderRequest is the JSON payload for creating a repair order.
type CreateRepairOrderRequest struct {
	// RONumber is the repair-order number (required).
	RONumber     string `json:"ro_number" binding:"required" example:"RO-2025-042"`
	PartNumber   string `json:"part_number" example:"fuel pump"`
	SerialNumber string `json:"serial_number" example:"SN-99812"`
	ShopName     string `json:"shop_name" example:"AeroFix Components"`
	// Status defaults to TO SEND when empty.
	Status            string     `json:"status" example:"TO SEND"`
	EstimatedCost     *float64   `json:"estimated_cost" example:"1200"`
	PaymentTerms      string     `json:"payment_terms" example:"NET 30"`
	TrackingNumber    string     `json:"tracking_number"`
	DroppedOffAt      *time.Time `json:"dropped_off_at"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             string     `json:"notes"`
}

// UpdateStatusRequest is the JSON payload for a status transition.
type UpdateStatusRequest struct {
	// Status is the new status (required). Free text, matched case-insensitively.
	Status string `json:"status" binding:"required" example:"QUOTE RECEIVED"`
	Notes  string `json:"notes"`
	// Cost routes to the final-cost column when the status is terminal,
	// otherwise to the estimated-cost column.
	Cost           *float64   `json:"cost" example:"1500"`
	DeliveryDate   *time.Time `json:"delivery_date"`
	TrackingNumber string     `json:"tracking_number"`
}

// UpdateRepairOrderRequest is the JSON payload for editing fields. Absent
// fields are left untouched.
type UpdateRepairOrderRequest struct {
	RONumber          *string    `json:"ro_number"`
	PartNumber        *string    `json:"part_number"`
	SerialNumber      *string    `json:"serial_number"`
	ShopName          *string    `json:"shop_name"`
	EstimatedCost     *float64   `json:"estimated_cost"`
	PaymentTerms      *string    `json:"payment_terms"`
	TrackingNumber    *string    `json:"tracking_number"`
	DroppedOffAt      *time.Time `json:"dropped_off_at"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             *string    `json:"notes"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ListRepairOrdersResponse wraps a page of orders and pagination information.
type ListRepairOrdersResponse struct {
	RepairOrders []domain.RepairOrder `json:"repair_orders"`
	Pagination   Pagination           `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failUpstream maps an error from the service layer onto an HTTP response.
// Workbook API failures become 502 so clients can distinguish a broken
// upstream from a broken server; everything else is a 500 with the supplied
// fallback code.
func failUpstream(c *gin.Context, err error, fallbackCode string) {
	var apiErr *graph.APIError
	if errors.As(err, &apiErr) {
		fail(c, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}
	fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
}

// requireUUID validates a path id, failing the request when malformed.
func requireUUID(c *gin.Context, name string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// ListRepairOrders godoc
// @ID          listRepairOrders
// @Summary     List repair orders (paginated)
// @Description Returns a page of repair orders with decoded history and computed overdue flags.
// @Tags        RepairOrders
// @Produce     json
//
// @Param       page       query   int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query   int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRepairOrdersResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /repair-orders [get]
func (h *Handlers) ListRepairOrders(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.roSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failUpstream(c, err, ErrCodeListFailed)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	ok(c, http.StatusOK, ListRepairOrdersResponse{
		RepairOrders: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CreateRepairOrder godoc
// @ID          createRepairOrder
// @Summary     Create a repair order
// @Description Appends a new repair order to the tracking sheet and returns the stored resource.
// @Tags        RepairOrders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Acting user (recorded in history)"
// @Param       body       body    handlers.CreateRepairOrderRequest  true  "Create payload"
//
// @Success     201  {object}  domain.RepairOrder
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Failure     502  {object}  handlers.ErrorResponse "Workbook API error"
// @Router      /repair-orders [post]
func (h *Handlers) CreateRepairOrder(c *gin.Context) {
	var req CreateRepairOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ro, err := h.roSvc.Create(c.Request.Context(), repo.AddParams{
		RONumber:          req.RONumber,
		PartNumber:        req.PartNumber,
		SerialNumber:      req.SerialNumber,
		ShopName:          req.ShopName,
		Status:            req.Status,
		EstimatedCost:     req.EstimatedCost,
		PaymentTerms:      req.PaymentTerms,
		TrackingNumber:    req.TrackingNumber,
		DroppedOffAt:      req.DroppedOffAt,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
		User:              userID(c),
	})
	switch {
	case errors.Is(err, services.ErrEmptyRONumber), errors.Is(err, services.ErrNegativeCost):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case err != nil:
		failUpstream(c, err, ErrCodeCreateFailed)
	default:
		ok(c, http.StatusCreated, ro)
	}
}

// UpdateRepairOrderStatus godoc
// @ID          updateRepairOrderStatus
// @Summary     Apply a status transition
// @Description Appends a history entry, routes the cost column, recomputes the follow-up date, and may schedule a payment reminder.
// @Tags        RepairOrders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID       header  string  false "Acting user (recorded in history)"
// @Param       Idempotency-Key header  string  false "Safe-retry key for double submits"
// @Param       id              path    string  true  "Repair order ID (UUID)" format(uuid)
// @Param       body            body    handlers.UpdateStatusRequest  true  "Status payload"
//
// @Success     200  {object}  domain.RepairOrder
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Repair order not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Failure     502  {object}  handlers.ErrorResponse "Workbook API error"
// @Router      /repair-orders/{id}/status [post]
func (h *Handlers) UpdateRepairOrderStatus(c *gin.Context) {
	id, okID := requireUUID(c, "repair order")
	if !okID {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ro, err := h.roSvc.UpdateStatus(c.Request.Context(), id, repo.StatusUpdate{
		Status:         req.Status,
		User:           userID(c),
		Notes:          req.Notes,
		Cost:           req.Cost,
		DeliveryDate:   req.DeliveryDate,
		TrackingNumber: req.TrackingNumber,
	})
	switch {
	case errors.Is(err, services.ErrEmptyStatus), errors.Is(err, services.ErrNegativeCost):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrRepairOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "repair order not found")
	case err != nil:
		failUpstream(c, err, ErrCodeUpdateFailed)
	default:
		ok(c, http.StatusOK, ro)
	}
}

// UpdateRepairOrder godoc
// @ID          updateRepairOrder
// @Summary     Edit repair-order fields
// @Description Overwrites the user-editable fields only; status and history are untouched.
// @Tags        RepairOrders
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Repair order ID (UUID)" format(uuid)
// @Param       body  body  handlers.UpdateRepairOrderRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.RepairOrder
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Repair order not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Failure     502  {object}  handlers.ErrorResponse "Workbook API error"
// @Router      /repair-orders/{id} [put]
func (h *Handlers) UpdateRepairOrder(c *gin.Context) {
	id, okID := requireUUID(c, "repair order")
	if !okID {
		return
	}

	var req UpdateRepairOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ro, err := h.roSvc.Update(c.Request.Context(), id, repo.UpdateFields{
		RONumber:          req.RONumber,
		PartNumber:        req.PartNumber,
		SerialNumber:      req.SerialNumber,
		ShopName:          req.ShopName,
		EstimatedCost:     req.EstimatedCost,
		PaymentTerms:      req.PaymentTerms,
		TrackingNumber:    req.TrackingNumber,
		DroppedOffAt:      req.DroppedOffAt,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	})
	switch {
	case errors.Is(err, services.ErrNegativeCost):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrRepairOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "repair order not found")
	case err != nil:
		failUpstream(c, err, ErrCodeUpdateFailed)
	default:
		ok(c, http.StatusOK, ro)
	}
}

// DeleteRepairOrder godoc
// @ID          deleteRepairOrder
// @Summary     Delete a repair order
// @Tags        RepairOrders
// @Produce     json
//
// @Param       id  path  string  true  "Repair order ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Repair order not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /repair-orders/{id} [delete]
func (h *Handlers) DeleteRepairOrder(c *gin.Context) {
	id, okID := requireUUID(c, "repair order")
	if !okID {
		return
	}

	err := h.roSvc.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrRepairOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "repair order not found")
	case err != nil:
		failUpstream(c, err, ErrCodeDeleteFailed)
	default:
		noContent(c)
	}
}

// ArchiveRepairOrder godoc
// @ID          archiveRepairOrder
// @Summary     Archive a repair order
// @Description Moves the order into the archive table: appended there first, then removed from the active table.
// @Tags        RepairOrders
// @Produce     json
//
// @Param       id  path  string  true  "Repair order ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Repair order not found"
// @Failure     409  {object} handlers.ErrorResponse "Archiving not configured"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /repair-orders/{id}/archive [post]
func (h *Handlers) ArchiveRepairOrder(c *gin.Context) {
	id, okID := requireUUID(c, "repair order")
	if !okID {
		return
	}

	err := h.roSvc.Archive(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrNoArchive):
		fail(c, http.StatusConflict, ErrCodeConflict, "archive table not configured")
	case errors.Is(err, services.ErrRepairOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "repair order not found")
	case err != nil:
		failUpstream(c, err, ErrCodeArchiveFailed)
	default:
		noContent(c)
	}
}
