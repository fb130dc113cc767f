// Shop HTTP handlers.
//
// REST endpoints for the repair-shop directory:
//   - GET    /shops        (list)
//   - POST   /shops        (create)
//   - PUT    /shops/{id}   (update)
//   - DELETE /shops/{id}   (delete)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/services"
)

// ShopRequest is the JSON payload for creating or updating a shop.
type ShopRequest struct {
	// BusinessName is required.
	BusinessName string `json:"business_name" binding:"required" example:"AeroFix Components"`
	ContactName  string `json:"contact_name" example:"Dana Reeve"`
	Phone        string `json:"phone" example:"+1 555 010 2233"`
	Email        string `json:"email" example:"repairs@aerofix.example"`
	// PaymentTerms drives payment-due reminders for this shop's orders.
	PaymentTerms string `json:"payment_terms" example:"NET 30"`
	Notes        string `json:"notes"`
}

func (r ShopRequest) toDomain() domain.Shop {
	return domain.Shop{
		BusinessName: r.BusinessName,
		ContactName:  r.ContactName,
		Phone:        r.Phone,
		Email:        r.Email,
		PaymentTerms: r.PaymentTerms,
		Notes:        r.Notes,
	}
}

// ListShops godoc
// @ID          listShops
// @Summary     List shops
// @Tags        Shops
// @Produce     json
//
// @Success     200  {array}  domain.Shop
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /shops [get]
func (h *Handlers) ListShops(c *gin.Context) {
	shops, err := h.shopSvc.List(c.Request.Context())
	if err != nil {
		failUpstream(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, shops)
}

// CreateShop godoc
// @ID          createShop
// @Summary     Create a shop
// @Tags        Shops
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ShopRequest  true  "Shop payload"
//
// @Success     201  {object} domain.Shop
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /shops [post]
func (h *Handlers) CreateShop(c *gin.Context) {
	var req ShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	shop, err := h.shopSvc.Create(c.Request.Context(), req.toDomain())
	switch {
	case errors.Is(err, services.ErrEmptyBusinessName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case err != nil:
		failUpstream(c, err, ErrCodeCreateFailed)
	default:
		ok(c, http.StatusCreated, shop)
	}
}

// UpdateShop godoc
// @ID          updateShop
// @Summary     Update a shop
// @Tags        Shops
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Shop ID (UUID)" format(uuid)
// @Param       body  body  handlers.ShopRequest  true  "Shop payload"
//
// @Success     200  {object} domain.Shop
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Shop not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /shops/{id} [put]
func (h *Handlers) UpdateShop(c *gin.Context) {
	id, okID := requireUUID(c, "shop")
	if !okID {
		return
	}

	var req ShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	shop, err := h.shopSvc.Update(c.Request.Context(), id, req.toDomain())
	switch {
	case errors.Is(err, services.ErrEmptyBusinessName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrShopNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
	case err != nil:
		failUpstream(c, err, ErrCodeUpdateFailed)
	default:
		ok(c, http.StatusOK, shop)
	}
}

// DeleteShop godoc
// @ID          deleteShop
// @Summary     Delete a shop
// @Tags        Shops
// @Produce     json
//
// @Param       id  path  string  true  "Shop ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Shop not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Workbook API error"
// @Router      /shops/{id} [delete]
func (h *Handlers) DeleteShop(c *gin.Context) {
	id, okID := requireUUID(c, "shop")
	if !okID {
		return
	}

	err := h.shopSvc.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrShopNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
	case err != nil:
		failUpstream(c, err, ErrCodeDeleteFailed)
	default:
		noContent(c)
	}
}
