package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/datavue/internal/cache"
	"github.com/iliyamo/datavue/internal/config"
	"github.com/iliyamo/datavue/internal/database"
	"github.com/iliyamo/datavue/internal/handler"
	"github.com/iliyamo/datavue/internal/queue"
	"github.com/iliyamo/datavue/internal/repository"
	"github.com/iliyamo/datavue/internal/router"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.InitSchema(ctx, db); err != nil {
		log.Fatalf("init schema: %v", err)
	}
	if err := database.EnsureDefaultAdmin(ctx, db, cfg.AdminUsername, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		log.Fatalf("ensure default admin: %v", err)
	}

	// Redis is optional: a nil client disables the catalog cache and
	// every lookup goes straight to SQLite.
	catalog := cache.NewCatalog(config.NewRedisClient(), 5*time.Minute)

	users := repository.NewUserRepo(db)
	types := repository.NewDataTypeRepo(db)
	fields := repository.NewFieldRepo(db)
	perms := repository.NewPermissionRepo(db)
	records := repository.NewRecordRepo(db)

	h := router.Handlers{
		Auth:  handler.NewAuthHandler(cfg, users),
		Data:  handler.NewDataHandler(types, fields, perms, records, catalog),
		Users: handler.NewUserHandler(cfg, users),
		Perms: handler.NewPermissionHandler(users, perms, catalog),
	}

	// The audit consumer drains broker events into a JSON-line log. It
	// reconnects on its own, so a down broker only delays the trail.
	go func() {
		if err := queue.StartAuditConsumer(cfg.AuditLogPath); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.RegisterRoutes(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBPath)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
