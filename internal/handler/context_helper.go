package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/middleware"
	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUserID writes a 401 and returns false when no claims are attached.
func currentUserID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func categoryFilter(c *gin.Context) models.RegistryFilter {
	var filter models.RegistryFilter
	if raw := c.Query("category"); raw != "" {
		category := models.VehicleCategory(raw)
		filter.Category = &category
	}
	return filter
}
