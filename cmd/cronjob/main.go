// Command cronjob runs one maintenance job immediately and exits.
//
//	go run ./cmd/cronjob -job refresh_course_statistics
package main

import (
	"flag"
	"os"

	"github.com/sahilchouksey/course-review-api/app"
	"github.com/sahilchouksey/course-review-api/config"
	"github.com/sahilchouksey/course-review-api/database"
	"github.com/sahilchouksey/course-review-api/services/cron"
	"github.com/sahilchouksey/course-review-api/utils/logger"
)

func main() {
	name := flag.String("job", "", "name of the job to run, e.g. "+cron.JobRefreshStatistics)
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *name == "" {
		log.Fatal("Missing -job")
	}

	if err := config.LoadENV(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}

	store, err := database.StartGORM(log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer store.Close()

	svc := app.NewServices(store.GetDB(), log)
	manager := cron.NewCronManager(store.GetDB(), svc.Stats, log.With("component", "cron"))

	found, err := manager.RunNow(*name)
	if !found {
		log.Fatal("Unknown job", "job", *name)
	}
	if err != nil {
		log.Fatal("Job failed", "job", *name, "error", err)
	}
	log.Info("Job finished", "job", *name)
}
