package main

import (
	"log"
	"os"

	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (gen_random_uuid defaults need pgcrypto)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models (The Core Task)
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.EmailVerificationToken{},
		&model.UserRefreshToken{},
		&model.Dataset{},
		&model.DataPoint{},
		&model.DatasetDataPoint{},
		&model.StateEntry{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Migration complete.")
}
