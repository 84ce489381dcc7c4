package handler

import (
	"pawnbook-service/internal/middleware"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts every endpoint on e
func RegisterRoutes(e *echo.Echo) {
	// Public routes - no authentication required
	e.GET("/health", HealthCheck)
	e.GET("/metrics", MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/register", Register)
	auth.POST("/login", Login)
	auth.POST("/logout", Logout)

	// Provider callbacks authenticate by signature
	e.POST("/api/webhooks/stripe", StripeWebhook)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	users := api.Group("/users")
	users.GET("/me", GetProfile)
	users.PATCH("/me", UpdateProfile)

	bookTypes := api.Group("/book-types")
	bookTypes.GET("", ListBookTypes)
	bookTypes.POST("", CreateBookType)
	bookTypes.GET("/:id", GetBookType)
	bookTypes.POST("/:id/fields", AddBookTypeField)

	books := api.Group("/books")
	books.GET("", ListBooks)
	books.POST("", CreateBook)
	books.GET("/:id", GetBook)
	books.PUT("/:id", UpdateBook)
	books.DELETE("/:id", DeleteBook)
	books.GET("/:book_id/summary", GetBookSummary)
	books.GET("/:book_id/items", ListItems)
	books.POST("/:book_id/items", CreateItem)
	books.POST("/:book_id/sales", CreateSale)
	books.GET("/:book_id/invoices", ListInvoices)
	books.GET("/:book_id/costs", ListCosts)
	books.POST("/:book_id/costs", CreateCost)
	books.GET("/:book_id/export", ExportBookItems)

	categories := api.Group("/categories")
	categories.GET("", ListCategories)
	categories.POST("", CreateCategory)
	categories.GET("/:id", GetCategory)
	categories.PUT("/:id", UpdateCategory)
	categories.DELETE("/:id", DeleteCategory)

	items := api.Group("/items")
	items.GET("/:id", GetItem)
	items.PUT("/:id", UpdateItem)
	items.DELETE("/:id", DeleteItem)
	items.PUT("/:id/attributes", PutItemAttributes)
	items.GET("/:id/purchase", GetPurchase)
	items.PUT("/:id/purchase", PutPurchase)
	items.DELETE("/:id/purchase", DeletePurchase)
	items.POST("/:id/sale", CreateItemSale)
	items.GET("/:item_id/incidents", ListIncidents)
	items.POST("/:item_id/incidents", CreateIncident)

	invoices := api.Group("/invoices")
	invoices.GET("/:id", GetInvoice)
	invoices.PUT("/:id", UpdateInvoice)
	invoices.DELETE("/:id", DeleteInvoice)
	invoices.GET("/:id/pdf", GetInvoicePDF)

	api.DELETE("/sales/:id", DeleteSale)

	incidents := api.Group("/incidents")
	incidents.GET("/:id", GetIncident)
	incidents.PUT("/:id", UpdateIncident)
	incidents.DELETE("/:id", DeleteIncident)
	incidents.POST("/:id/resolve", ResolveIncident)

	api.GET("/person-types", ListPersonTypes)
	people := api.Group("/people")
	people.GET("", ListPeople)
	people.POST("", CreatePerson)
	people.GET("/:id", GetPerson)
	people.PUT("/:id", UpdatePerson)
	people.DELETE("/:id", DeletePerson)
	people.GET("/:id/transactions", GetPersonTransactions)

	costs := api.Group("/costs")
	costs.PUT("/:id", UpdateCost)
	costs.DELETE("/:id", DeleteCost)

	images := api.Group("/images")
	images.GET("", ListImages)
	images.POST("", UploadImage)
	images.PUT("/reorder", ReorderImages)
	images.GET("/:id", GetImage)
	images.PATCH("/:id", UpdateImage)
	images.POST("/:id/primary", SetPrimaryImage)
	images.DELETE("/:id", DeleteImage)

	documents := api.Group("/documents")
	documents.GET("", ListDocuments)
	documents.POST("", UploadDocument)
	documents.GET("/:id", GetDocument)
	documents.PATCH("/:id", UpdateDocument)
	documents.DELETE("/:id", DeleteDocument)

	subscription := api.Group("/subscription")
	subscription.GET("/status", GetSubscriptionStatus)
	subscription.POST("/checkout", CreateCheckoutSession)
	subscription.POST("/portal", CreatePortalSession)

	notifications := api.Group("/notifications")
	notifications.GET("", ListNotifications)
	notifications.POST("/read-all", MarkAllNotificationsRead)
	notifications.POST("/:id/read", MarkNotificationRead)
}
