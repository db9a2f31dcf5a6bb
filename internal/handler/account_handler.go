package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type accountService interface {
	List(ctx context.Context, filter models.AccountFilter) ([]models.AccountInfo, error)
	Get(ctx context.Context, id string) (*models.AccountInfo, error)
}

// AccountHandler serves account listings to administrators.
type AccountHandler struct {
	service accountService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(svc accountService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// List godoc
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	var filter models.AccountFilter
	if role := c.Query("role"); role != "" {
		r := models.AccountRole(role)
		filter.Role = &r
	}
	filter.Search = c.Query("search")

	accounts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, map[string]interface{}{"count": len(accounts)})
}

// Get godoc
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account)
}
