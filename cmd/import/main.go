// Command import loads the course review dataset into the database.
//
//	go run ./cmd/import -file courses_advanced.json
//	go run ./cmd/import -spaces-key datasets/courses.yaml -report-key reports/import.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/course-review-api/app"
	"github.com/sahilchouksey/course-review-api/config"
	"github.com/sahilchouksey/course-review-api/database"
	"github.com/sahilchouksey/course-review-api/services/importer"
	"github.com/sahilchouksey/course-review-api/services/spaces"
	"github.com/sahilchouksey/course-review-api/utils/logger"
)

func main() {
	file := flag.String("file", "", "path of a local JSON or YAML dataset")
	spacesKey := flag.String("spaces-key", "", "object key of the dataset in the configured Spaces bucket")
	reportKey := flag.String("report-key", "", "upload the import report to this Spaces key")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := config.LoadENV(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read configuration", "error", err)
	}

	if (*file == "") == (*spacesKey == "") {
		log.Fatal("exactly one of -file or -spaces-key is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bucket *spaces.Client
	if *spacesKey != "" || *reportKey != "" {
		bucket, err = spaces.NewClient(spaces.Config{
			AccessKey: getEnv.DO_SPACES_ACCESS_KEY,
			SecretKey: getEnv.DO_SPACES_SECRET_KEY,
			Bucket:    getEnv.DO_SPACES_BUCKET,
			Region:    getEnv.DO_SPACES_REGION,
			Endpoint:  getEnv.DO_SPACES_ENDPOINT,
		})
		if err != nil {
			log.Fatal("Failed to create Spaces client", "error", err)
		}
	}

	name := *file
	var data []byte
	if *file != "" {
		data, err = os.ReadFile(*file)
	} else {
		name = *spacesKey
		data, err = bucket.Fetch(ctx, *spacesKey)
	}
	if err != nil {
		log.Fatal("Failed to read dataset", "source", name, "error", err)
	}

	dataset, err := importer.Parse(name, data)
	if err != nil {
		log.Fatal("Failed to parse dataset", "source", name, "error", err)
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
	started := time.Now()
	report, err := importer.New(svc.Courses, svc.Reviews, svc.Accounts, log).Run(ctx, dataset)
	if err != nil {
		log.Error("Import stopped", "error", err)
	}

	log.Info("Import finished",
		"courses", report.Courses,
		"reviews_created", report.ReviewsCreated,
		"reviews_skipped", report.ReviewsSkipped,
		"reviews_rejected", report.ReviewsRejected,
		"stale_courses", len(report.StaleCourses),
		"duration", time.Since(started).String(),
	)

	if *reportKey != "" {
		body, merr := json.MarshalIndent(report, "", "  ")
		if merr == nil {
			merr = bucket.Upload(ctx, *reportKey, bytes.NewReader(body), "application/json")
		}
		if merr != nil {
			log.Error("Failed to upload import report", "key", *reportKey, "error", merr)
		}
	}

	if err != nil {
		os.Exit(1)
	}
}
