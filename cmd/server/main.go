package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"case_track_app_go/config"
	"case_track_app_go/db"
	"case_track_app_go/handlers"
	"case_track_app_go/middleware"
	"case_track_app_go/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Push dispatcher. The server runs fine without FCM credentials; fan-out
	// simply delivers to zero endpoints.
	var pusher services.Pusher
	if fcm, err := services.NewFCMPusher(context.Background(), cfg.FirebaseCredentialsFile, cfg.PushTimeout); err != nil {
		log.Printf("[WARNING] FCM initialization failed, push notifications disabled: %v", err)
	} else if fcm != nil {
		pusher = fcm
	}
	handlers.SetNotifier(services.NewNotifyService(db.DB, pusher))

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public client routes (access-code based, no authentication)
	e.GET("/client/lookup", handlers.ClientLookupHandler)
	e.POST("/client/lookup", handlers.ClientLookupHandler)
	e.POST("/client/device", handlers.ClientDeviceRegisterHandler)
	e.POST("/client/call-request", handlers.ClientCallRequestHandler)

	// Attorney routes (session required)
	attorney := e.Group("/attorney")
	attorney.Use(middleware.RequireAuth())
	{
		attorney.GET("/bootstrap", handlers.AttorneyBootstrapHandler)
		attorney.POST("/cases", handlers.CreateCaseHandler)
		attorney.PATCH("/cases/:id", handlers.CaseUpdateHandler)
		attorney.POST("/cases/import", handlers.ImportCasesHandler)
		attorney.GET("/cases/import/template", handlers.ImportTemplateHandler)
		attorney.POST("/device", handlers.AttorneyDeviceRegisterHandler)
	}

	log.Printf("Starting server on port %s (%s)", cfg.ServerPort, cfg.Environment)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
