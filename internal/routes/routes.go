package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/config"
	"github.com/example/flexora/internal/handlers"
	"github.com/example/flexora/internal/middleware"
	"github.com/example/flexora/internal/services"
	"github.com/example/flexora/pkg/events"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, gateway services.PaymentGateway, publisher *events.Publisher) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db)
	orderHandler := handlers.NewOrderHandler(db, telegramService, publisher)
	paymentHandler := handlers.NewPaymentHandler(db, cfg, gateway, telegramService)
	profileHandler := handlers.NewProfileHandler(db)
	adminHandler := handlers.NewAdminHandler(db, publisher)
	contactHandler := handlers.NewContactHandler(db)

	requireAuth := middleware.AuthMiddleware(db, cfg)
	requireAdmin := middleware.AdminMiddleware(db, cfg)
	optionalAuth := middleware.OptionalAuthMiddleware(db, cfg)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/send-otp", authHandler.SendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/google", authHandler.Google)
	auth.Get("/me", requireAuth, authHandler.Me)
	auth.Post("/logout", requireAuth, authHandler.Logout)

	// Public catalog
	products := api.Group("/products", optionalAuth)
	products.Get("/", productHandler.ListProducts)
	products.Get("/categories/list", productHandler.ListCategories)
	products.Get("/search/:query", productHandler.SearchProducts)
	products.Get("/featured/list", productHandler.FeaturedProducts)
	products.Get("/category/:category", productHandler.ProductsByCategory)
	products.Get("/:id", productHandler.GetProduct)

	// Profile and address book
	users := api.Group("/users", requireAuth)
	users.Get("/profile", profileHandler.GetProfile)
	users.Put("/profile", profileHandler.UpdateProfile)
	users.Put("/change-password", profileHandler.ChangePassword)
	users.Get("/addresses", profileHandler.ListAddresses)
	users.Post("/addresses", profileHandler.CreateAddress)
	users.Put("/addresses/:id/default", profileHandler.SetDefaultAddress)
	users.Put("/addresses/:id", profileHandler.UpdateAddress)
	users.Delete("/addresses/:id", profileHandler.DeleteAddress)

	// Orders
	orders := api.Group("/orders")
	orders.Get("/track/:orderNumber", optionalAuth, orderHandler.TrackOrder)
	orders.Post("/", requireAuth, orderHandler.CreateOrder)
	orders.Get("/my-orders", requireAuth, orderHandler.ListMyOrders)
	orders.Put("/:id/cancel", requireAuth, orderHandler.CancelOrder)
	orders.Get("/:id", requireAuth, orderHandler.GetOrder)

	// Payments
	payments := api.Group("/payments")
	payments.Post("/create-order", requireAuth, paymentHandler.CreatePaymentOrder)
	payments.Post("/verify", requireAuth, paymentHandler.VerifyPayment)
	payments.Get("/status/:orderId", requireAuth, paymentHandler.PaymentStatus)
	payments.Get("/history", requireAuth, paymentHandler.PaymentHistory)
	payments.Post("/refund/:paymentId", requireAdmin, paymentHandler.RefundPayment)

	// Contact form
	api.Post("/contact", contactHandler.Submit)

	// Back office
	admin := api.Group("/admin", requireAdmin)
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Put("/users/:id/status", adminHandler.UpdateUserStatus)
	admin.Get("/orders", adminHandler.ListOrders)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Get("/products", adminHandler.ListProducts)
	admin.Post("/products", adminHandler.CreateProduct)
	admin.Put("/products/:id", adminHandler.UpdateProduct)
	admin.Delete("/products/:id", adminHandler.DeleteProduct)
	admin.Get("/contact", contactHandler.List)
}
