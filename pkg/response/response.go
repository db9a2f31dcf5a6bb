package response

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

var exposeDetail atomic.Bool

// ExposeErrorDetail toggles inclusion of wrapped causes in error payloads. Disabled in production.
func ExposeErrorDetail(enabled bool) {
	exposeDetail.Store(enabled)
}

// ErrorBody is the serialised error contract.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Detail  string                 `json:"detail,omitempty"`
}

// Envelope represents the common response contract.
type Envelope struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   *ErrorBody             `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Success: true, Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := &ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	if exposeDetail.Load() && appErr.Err != nil {
		body.Detail = appErr.Err.Error()
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Success: false, Error: body})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
