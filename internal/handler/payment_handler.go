package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type paymentService interface {
	StudentView(ctx context.Context, userID string) (*models.PaymentView, error)
	UpdateLedger(ctx context.Context, userID string, req models.UpdateLedgerRequest) (*models.StudentLedger, error)
	Global(ctx context.Context) (*models.GlobalPaymentConfig, error)
	UpdateGlobal(ctx context.Context, req models.UpdateGlobalPaymentRequest) (*models.GlobalPaymentConfig, error)
	UploadGlobalQR(ctx context.Context, req models.UploadImageRequest) (*models.GlobalPaymentConfig, error)
}

// PaymentHandler serves ledgers and the global payment settings.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Mine godoc
// @Summary Own payment details
// @Description Student ledger merged with the global payment contact
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/payment [get]
func (h *PaymentHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	view, err := h.service.StudentView(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// UpdateLedger godoc
// @Summary Update student ledger
// @Tags Payments
// @Accept json
// @Produce json
// @Param userId path string true "Account ID"
// @Param payload body models.UpdateLedgerRequest true "Ledger patch"
// @Success 200 {object} response.Envelope
// @Router /payments/{userId} [put]
func (h *PaymentHandler) UpdateLedger(c *gin.Context) {
	var req models.UpdateLedgerRequest
	if !bindJSON(c, &req, "invalid ledger payload") {
		return
	}
	ledger, err := h.service.UpdateLedger(c.Request.Context(), c.Param("userId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger)
}

// Global godoc
// @Summary Global payment settings
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/global [get]
func (h *PaymentHandler) Global(c *gin.Context) {
	global, err := h.service.Global(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, global)
}

// UpdateGlobal godoc
// @Summary Update global payment settings
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body models.UpdateGlobalPaymentRequest true "Settings patch"
// @Success 200 {object} response.Envelope
// @Router /payments/global [put]
func (h *PaymentHandler) UpdateGlobal(c *gin.Context) {
	var req models.UpdateGlobalPaymentRequest
	if !bindJSON(c, &req, "invalid payment settings payload") {
		return
	}
	global, err := h.service.UpdateGlobal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, global)
}

// UploadGlobalQR godoc
// @Summary Upload payment QR image
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body models.UploadImageRequest true "Image"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /payments/global/qr [post]
func (h *PaymentHandler) UploadGlobalQR(c *gin.Context) {
	var req models.UploadImageRequest
	if !bindJSON(c, &req, "invalid image payload") {
		return
	}
	global, err := h.service.UploadGlobalQR(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, global)
}
