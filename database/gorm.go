package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-review-api/config"
	"github.com/sahilchouksey/course-review-api/model"
	"github.com/sahilchouksey/course-review-api/services"
	"github.com/sahilchouksey/course-review-api/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error
	GetDB() *gorm.DB
}

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// StartGORM initializes a GORM connection to PostgreSQL from the environment
func StartGORM(log *logger.Logger) (*GORMStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}
	return OpenGORM(getEnv.DSN(), getEnv.GO_ENV == "production", log)
}

// OpenGORM opens a GORM connection to the given DSN
func OpenGORM(dsn string, production bool, log *logger.Logger) (*GORMStore, error) {
	if log == nil {
		log = logger.NewNop()
	}

	level := gormLogger.Warn
	if production {
		level = gormLogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(level),
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
		PrepareStmt:    true,
	})
	if err != nil {
		log.Error("Unable to connect to PostgreSQL", "error", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Connected to PostgreSQL")

	return &GORMStore{db: db, log: log}, nil
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	s.log.Info("Running AutoMigrate")

	err := s.db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Review{},
		&model.UserActivity{},
		&model.JWTTokenBlacklist{},
		&model.CronJobLog{},
	)
	if err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return err
	}

	s.log.Info("AutoMigrate completed")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in repositories/handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// translateError maps gorm errors onto the service error values
func translateError(err error, resource string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &services.NotFoundError{Resource: resource, ID: id}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", resource, services.ErrDuplicate)
	default:
		return err
	}
}
