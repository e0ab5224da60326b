package main

import (
	"context"
	"log"

	"github.com/KayTeo/mimir-extension/internal/bootstrap"
	"github.com/KayTeo/mimir-extension/internal/config"
	"github.com/KayTeo/mimir-extension/internal/server"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/internal/tracer"
	"github.com/KayTeo/mimir-extension/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Startup lifecycle: seed state defaults, hook auth notifications,
	// then try to re-establish any persisted session before serving.
	if err := statestore.Initialize(context.Background(), container.StateStore); err != nil {
		log.Panicf("Unable to initialize state store: %v", err)
	}
	container.SessionService.SetupAuthStateListener()
	container.SessionService.RestoreSession(context.Background())

	// 5. Start Background Services
	if err := container.EventPumpService.Run(context.Background()); err != nil {
		log.Panicf("Unable to start event pump: %v", err)
	}
	container.Dispatcher.Start()

	// 6. Initialize Server
	srv := server.New(cfg, container)

	// 7. Run Server
	log.Fatal(srv.Run())
}
