package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"shop-api/internal/database"
	"shop-api/internal/service"
)

type Services struct {
	Auth      service.AuthService
	Orders    service.OrderService
	Products  service.ProductService
	Customers service.CustomerService
	Admins    service.AdminService
	Tracking  service.TrackingService
	Health    database.Service
}

func NewRouter(svc Services, corsOrigin string) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	orderHandler := NewOrderHandler(svc.Orders, svc.Tracking)
	productHandler := NewProductHandler(svc.Products)
	customerHandler := NewCustomerHandler(svc.Customers)
	authHandler := NewAuthHandler(svc.Auth)
	adminHandler := NewAdminHandler(svc.Admins)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Health.Health())
	})

	auth := RequireAuth(svc.Auth)
	admin := RequireAdmin()

	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/logout", auth, authHandler.Logout)

	r.POST("/customers/register", customerHandler.Register)
	r.GET("/customers/profile", auth, customerHandler.Profile)
	r.GET("/customers/top-spending", auth, admin, customerHandler.TopSpending)
	r.GET("/customers/orders", auth, admin, customerHandler.OrderSummaries)

	// /products/search must be registered before /products/:id so "search"
	// is not parsed as an id.
	r.GET("/products", productHandler.ListProducts)
	r.GET("/products/search", productHandler.SearchProducts)
	r.GET("/products/:id", productHandler.GetProduct)
	r.POST("/products", auth, admin, productHandler.CreateProduct)
	r.DELETE("/products/:id", auth, admin, productHandler.DeleteProduct)

	r.POST("/orders", auth, orderHandler.CreateOrder)
	r.GET("/orders", auth, orderHandler.ListOrders)
	r.GET("/orders/:id", auth, orderHandler.GetOrder)
	r.GET("/orders/:id/tracking", auth, orderHandler.GetTracking)
	r.PATCH("/orders/:id/status", auth, admin, orderHandler.UpdateStatus)

	r.POST("/admin/register", adminHandler.Register)
	r.POST("/admin/login", adminHandler.Login)
	r.GET("/admin/dashboard", auth, admin, adminHandler.Dashboard)

	return r
}
