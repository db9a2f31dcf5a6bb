package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error)
	UploadImage(ctx context.Context, userID string, req models.UploadImageRequest) (*models.Profile, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get godoc
// @Summary Own profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	profile, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// Update godoc
// @Summary Update own profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	profile, err := h.service.Update(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// UploadImage godoc
// @Summary Upload profile image
// @Description Accepts a base64 data URI. A failed upload leaves the profile untouched.
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.UploadImageRequest true "Image"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /me/profile/image [post]
func (h *ProfileHandler) UploadImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.UploadImageRequest
	if !bindJSON(c, &req, "invalid image payload") {
		return
	}
	profile, err := h.service.UploadImage(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}
