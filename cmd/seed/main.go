// main.go - demo data seeding tool
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/logging"
	"shoplens/internal/seeder"
)

func main() {
	_ = godotenv.Load()

	windowDays := flag.Int("days", 30, "number of trailing days to seed")
	flag.Parse()

	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	s := seeder.NewSeeder(dbManager, logger, *windowDays)
	if err := s.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}
