package store

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

type DBRepo interface {
	DB() *gorm.DB
	// Ping runs SELECT 1 to prove the credentials work before anything mutates.
	Ping() error
	Shutdown() error
}

type repo struct {
	Database *gorm.DB
}

// NewPostgresStore opens a gorm connection from the app configuration.
func NewPostgresStore(appConfig *config.AppConfig, l *logger.Logger) (DBRepo, error) {
	sslMode := appConfig.Postgres.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	ds := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		appConfig.Postgres.Host,
		appConfig.Postgres.User,
		appConfig.Postgres.Pass,
		appConfig.Postgres.Name,
		appConfig.Postgres.Port,
		sslMode,
	)

	db, err := gorm.Open(postgres.Open(ds),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: false,
			},
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	l.Info("database connected", map[string]string{
		"host": appConfig.Postgres.Host,
		"name": appConfig.Postgres.Name,
	})
	return &repo{Database: db}, nil
}

func (r *repo) DB() *gorm.DB {
	return r.Database
}

func (r *repo) Ping() error {
	return r.Database.Exec("SELECT 1").Error
}

func (r *repo) Shutdown() error {
	sqlDB, err := r.Database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
