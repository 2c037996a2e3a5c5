package routes

import (
	"github.com/gin-gonic/gin"

	"drivncook/controllers"
	"drivncook/middleware"
)

// SetupRoutes registers every API route on the engine
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	// Gateway webhooks carry their own signature, never a JWT
	payments := api.Group("/payments")
	{
		payments.POST("/entry-fee/webhook", controllers.StripeWebhook)
		payments.POST("/orders/webhook", controllers.StripeWebhook)
	}

	// Catalog browsing is public
	api.GET("/products", controllers.GetProducts)
	api.GET("/products/:id", controllers.GetProductByID)
	api.GET("/product-categories", controllers.GetProductCategories)

	// Authenticated routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/profile", controllers.GetProfile)
		protected.PUT("/profile", controllers.UpdateProfile)

		// Franchises
		franchises := protected.Group("/franchises")
		{
			franchises.GET("", middleware.AdminAuthMiddleware(), controllers.GetFranchises)
			franchises.GET("/:id", controllers.GetFranchiseByID)
			franchises.PUT("/:id", controllers.UpdateFranchise)
			franchises.POST("/:id/validate-documents", middleware.AdminAuthMiddleware(), controllers.ValidateDocuments)
			franchises.PATCH("/:id/status", middleware.AdminAuthMiddleware(), controllers.UpdateFranchiseStatus)
			franchises.DELETE("/:id", middleware.AdminAuthMiddleware(), controllers.DeleteFranchise)
		}

		// Orders
		orders := protected.Group("/orders")
		{
			orders.POST("", controllers.CreateOrder)
			orders.GET("", controllers.GetOrders)
			orders.GET("/:id", controllers.GetOrderByID)
			orders.PUT("/:id", controllers.UpdateOrder)
			orders.POST("/:id/items", controllers.AddOrderItem)
			orders.DELETE("/:id/items/:itemId", controllers.RemoveOrderItem)
			orders.POST("/:id/transmit", controllers.TransmitOrder)
			orders.GET("/:id/pdf", controllers.DownloadOrderPDF)
		}

		// Stocks
		stocks := protected.Group("/stocks")
		{
			stocks.GET("", controllers.GetStocks)
			stocks.POST("/adjust", middleware.AdminAuthMiddleware(), controllers.AdjustStock)
		}

		// Invoices
		invoices := protected.Group("/invoices")
		{
			invoices.GET("", controllers.GetInvoices)
			invoices.GET("/:id", controllers.GetInvoiceByID)
			invoices.GET("/:id/pdf", controllers.DownloadInvoicePDF)
			invoices.POST("", middleware.AdminAuthMiddleware(), controllers.CreateInvoice)
			invoices.POST("/generate", middleware.AdminAuthMiddleware(), controllers.GenerateRoyaltyInvoice)
			invoices.PATCH("/:id/paid", middleware.AdminAuthMiddleware(), controllers.MarkInvoicePaid)
		}

		// Sales reports
		salesReports := protected.Group("/sales-reports")
		{
			salesReports.GET("", controllers.GetSalesReports)
			salesReports.POST("", controllers.CreateSalesReport)
			salesReports.GET("/:id", controllers.GetSalesReportByID)
			salesReports.PUT("/:id", controllers.UpdateSalesReport)
			salesReports.DELETE("/:id", middleware.AdminAuthMiddleware(), controllers.DeleteSalesReport)
		}

		// Vehicles and maintenance
		vehicles := protected.Group("/vehicles")
		{
			vehicles.GET("", controllers.GetVehicles)
			vehicles.GET("/:id", controllers.GetVehicleByID)
			vehicles.POST("", middleware.AdminAuthMiddleware(), controllers.CreateVehicle)
			vehicles.PUT("/:id", middleware.AdminAuthMiddleware(), controllers.UpdateVehicle)
			vehicles.POST("/:id/assign", middleware.AdminAuthMiddleware(), controllers.AssignVehicle)
			vehicles.POST("/:id/maintenance", middleware.AdminAuthMiddleware(), controllers.CreateMaintenance)
		}
		protected.PATCH("/maintenances/:id/complete", middleware.AdminAuthMiddleware(), controllers.CompleteMaintenance)

		// Catalog administration
		products := protected.Group("/products")
		products.Use(middleware.AdminAuthMiddleware())
		{
			products.POST("", controllers.CreateProduct)
			products.PUT("/:id", controllers.UpdateProduct)
			products.DELETE("/:id", controllers.DeleteProduct)
		}
		protected.POST("/product-categories", middleware.AdminAuthMiddleware(), controllers.CreateProductCategory)

		// Warehouses
		warehouses := protected.Group("/warehouses")
		{
			warehouses.GET("", controllers.GetWarehouses)
			warehouses.GET("/:id", controllers.GetWarehouseByID)
			warehouses.POST("", middleware.AdminAuthMiddleware(), controllers.CreateWarehouse)
			warehouses.PUT("/:id", middleware.AdminAuthMiddleware(), controllers.UpdateWarehouse)
		}

		// Payments
		entryFee := protected.Group("/payments/entry-fee")
		entryFee.Use(middleware.FranchiseeAuthMiddleware())
		{
			entryFee.POST("/checkout", controllers.CreateEntryFeeCheckout)
			entryFee.POST("/intent", controllers.CreateEntryFeeIntent)
			entryFee.POST("/confirm", controllers.ConfirmEntryFeePayment)
		}
		orderPayments := protected.Group("/payments/orders/:id")
		{
			orderPayments.POST("/checkout", controllers.CreateOrderCheckout)
			orderPayments.POST("/intent", controllers.CreateOrderPaymentIntent)
			orderPayments.POST("/confirm", controllers.ConfirmOrderPayment)
		}

		// Notifications
		notifications := protected.Group("/notifications")
		{
			notifications.GET("", controllers.GetNotifications)
			notifications.PATCH("/:id/read", controllers.MarkNotificationRead)
			notifications.PATCH("/read-all", controllers.MarkAllNotificationsRead)
			notifications.PATCH("/:id/archive", controllers.ArchiveNotification)
		}

		// Dashboards
		protected.GET("/admin/dashboard", middleware.AdminAuthMiddleware(), controllers.GetAdminDashboard)
		protected.GET("/franchise/dashboard", middleware.FranchiseeAuthMiddleware(), controllers.GetFranchiseDashboard)
	}
}
