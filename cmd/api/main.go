package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"shop-api/internal/config"
	"shop-api/internal/database"
	"shop-api/internal/handlers"
	"shop-api/internal/repo"
	"shop-api/internal/service"
	"shop-api/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}

	userRepo := repo.NewUserRepo(db)
	customerRepo := repo.NewCustomerRepo(db)
	adminRepo := repo.NewAdminRepo(db)
	productRepo := repo.NewProductRepo(db)
	orderRepo := repo.NewOrderRepo(db)
	trackingRepo := repo.NewTrackingRepo(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	orderService := service.NewOrderService(db, orderRepo, productRepo, customerRepo, trackingRepo)
	productService := service.NewProductService(productRepo)
	customerService := service.NewCustomerService(db, userRepo, customerRepo, authService)
	adminService := service.NewAdminService(db, userRepo, adminRepo, authService)
	trackingService := service.NewTrackingService(db, orderRepo, productRepo, customerRepo, trackingRepo)

	restockWorker := worker.NewRestockWorker(db, orderRepo, productRepo, trackingRepo, cfg.RestockInterval, cfg.PendingOrderTTL)
	go restockWorker.Run(ctx)

	router := handlers.NewRouter(handlers.Services{
		Auth:      authService,
		Orders:    orderService,
		Products:  productService,
		Customers: customerService,
		Admins:    adminService,
		Tracking:  trackingService,
		Health:    database.New(db, cfg),
	}, cfg.CORSOrigin)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
