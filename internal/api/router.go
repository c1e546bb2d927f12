// Package api contains the HTTP handlers and routing for the payment gateway.
package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, ginMode string) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())

	// Health check endpoint (no auth required)
	router.GET("/health", handler.Health)

	// Checkout-page bootstrap: public key and frame targets only.
	router.GET("/checkout/config", handler.CheckoutConfig)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		methods := v1.Group("/payment-methods")
		{
			methods.POST("", handler.CreatePaymentMethod)
			methods.PATCH("/:id", handler.UpdatePaymentMethod)
			methods.DELETE("/:id", handler.DeletePaymentMethod)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", handler.CreatePayment)
			payments.GET("/:id", handler.GetPayment)
			payments.POST("/:id/capture", handler.CapturePayment)
			payments.POST("/:id/void", handler.VoidPayment)
			payments.POST("/:id/refund", handler.RefundPayment)
		}
	}

	return router
}
