package main

import (
	"context"
	"log"

	"sarathi-be/internal/bootstrap"
	"sarathi-be/internal/config"
	"sarathi-be/internal/model"
	"sarathi-be/internal/server"
	"sarathi-be/internal/tracer"
	"sarathi-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (enabled via OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if err := database.EnsureVectorExtension(gormDB); err != nil {
		log.Panicf("Unable to ensure pgvector extension: %v", err)
	}
	if err := gormDB.AutoMigrate(&model.Passage{}, &model.TurnLog{}); err != nil {
		log.Panicf("Unable to migrate schema: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Analytics Consumer...")
		if err := container.AnalyticsService.Consume(context.Background()); err != nil {
			log.Printf("Background Analytics Error: %v", err)
		}
	}()
	if container.AlertService != nil {
		go func() {
			log.Println("Background: Starting Safety Alert Consumer...")
			if err := container.AlertService.Consume(); err != nil {
				log.Printf("Background Alert Consumer Error: %v", err)
			}
		}()
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
