package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, planHandler *PlanHandler, paymentHandler *PaymentHandler, reportHandler *ReportHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Plan routes
	plans := api.Group("/plans")
	plans.POST("", planHandler.CreatePlan)
	plans.POST("/preview", planHandler.PreviewPlan)
	plans.GET("", planHandler.GetPlans)
	plans.GET("/:id", planHandler.GetPlan)
	plans.POST("/:id/cancel", planHandler.CancelPlan)
	plans.POST("/:id/default", planHandler.DefaultPlan)
	plans.POST("/:id/installments/:no/pay", paymentHandler.PayInstallment)

	// Dashboard and report routes
	api.GET("/dashboard", reportHandler.GetDashboard)
	reports := api.Group("/reports")
	reports.GET("/collections", reportHandler.GetCollections)
	reports.GET("/defaulters", reportHandler.GetDefaulters)
	reports.GET("/outstanding", reportHandler.GetOutstanding)

	// WebSocket endpoint for live dashboard updates
	e.GET("/ws", wsHandler.HandleWS)
}
