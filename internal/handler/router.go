package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/middleware"
	"github.com/noah-isme/drive-admin-api/internal/models"
)

// Handlers groups every HTTP handler registered by Register.
type Handlers struct {
	Auth     *AuthHandler
	Registry *RegistryHandler
	Accounts *AccountHandler
	Profile  *ProfileHandler
	Progress *ProgressHandler
	Payments *PaymentHandler
	Vehicles *VehicleHandler
	Metrics  *MetricsHandler
}

// Register mounts the API under api. auth guards every route except signup and login.
func Register(api gin.IRouter, h Handlers, auth gin.HandlerFunc) {
	api.POST("/auth/signup", h.Auth.Signup)
	api.POST("/auth/login", h.Auth.Login)

	me := api.Group("/me", auth)
	me.GET("", h.Registry.Me)
	me.GET("/progress", h.Progress.Mine)
	me.GET("/payment", h.Payments.Mine)
	me.GET("/profile", h.Profile.Get)
	me.PUT("/profile", h.Profile.Update)
	me.POST("/profile/image", h.Profile.UploadImage)

	admin := api.Group("", auth, middleware.RequireRoles(models.RoleAdmin))
	adminOrSelf := api.Group("", auth, middleware.RBAC(string(models.RoleAdmin), middleware.Self))

	admin.GET("/registry", h.Registry.List)
	admin.GET("/registry/export", h.Registry.Export)
	admin.GET("/registry/stats", h.Registry.Stats)
	admin.GET("/registry/application/:number", h.Registry.ByApplicationNumber)
	adminOrSelf.GET("/registry/:userId", h.Registry.Get)
	admin.PATCH("/registry/:userId", h.Registry.Update)
	admin.POST("/registry/:userId/sessions", h.Registry.AddSession)
	admin.POST("/registry/bulk-category", h.Registry.BulkCategory)
	admin.DELETE("/students/:userId", h.Registry.DeleteStudent)

	admin.GET("/accounts", h.Accounts.List)
	admin.GET("/accounts/:id", h.Accounts.Get)

	admin.PUT("/progress/:userId/courses/:vehicleType", h.Progress.UpsertCourse)
	admin.PATCH("/progress/:userId/courses/:vehicleType/cells", h.Progress.SetCell)
	admin.DELETE("/progress/:userId/courses/:vehicleType", h.Progress.RemoveCourse)

	admin.GET("/payments/global", h.Payments.Global)
	admin.PUT("/payments/global", h.Payments.UpdateGlobal)
	admin.POST("/payments/global/qr", h.Payments.UploadGlobalQR)
	admin.PUT("/payments/:userId", h.Payments.UpdateLedger)

	admin.GET("/vehicles/lookup", h.Vehicles.Lookup)
	admin.GET("/system/metrics", h.Metrics.Snapshot)
}
