package main

import (
	"context"
	"os"

	"github.com/sahilchouksey/course-review-api/app"
	"github.com/sahilchouksey/course-review-api/config"
	"github.com/sahilchouksey/course-review-api/database"
	"github.com/sahilchouksey/course-review-api/utils/logger"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := config.LoadENV(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}

	store, err := database.StartGORM(log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	svc := app.NewServices(store.GetDB(), log)
	seeder := database.NewSeeder(store.GetDB(), svc.Accounts, svc.Courses, log)

	err = seeder.SeedAll(context.Background(), database.AdminCredentials{
		Username: os.Getenv("ADMIN_USERNAME"),
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	})
	if err != nil {
		log.Fatal("Seeding failed", "error", err)
	}
}
