package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Options struct {
	Driver      string
	PostgresURI string
	MySQLDSN    string
}

// Open connects to the configured database. For Postgres the raw *sql.DB
// comes from lib/pq and is handed to gorm, so the caller owns closing it.
func Open(opts Options) (*gorm.DB, *sql.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch opts.Driver {
	case DriverMySQL:
		gdb, err := gorm.Open(mysql.Open(opts.MySQLDSN), gormCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := sqlDB.Ping(); err != nil {
			return nil, nil, fmt.Errorf("database is unreachable: %w", err)
		}
		return gdb, sqlDB, nil
	case DriverPostgres, "":
		sqlDB, err := sql.Open("postgres", opts.PostgresURI)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("database is unreachable: %w", err)
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		if err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("open gorm: %w", err)
		}
		return gdb, sqlDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Account{},
		&models.Channel{},
		&models.Keyword{},
		&models.ScheduleConfig{},
		&models.CreditLedgerEntry{},
		&models.Post{},
		&models.AssetJob{},
	)
	if err != nil {
		slog.Error("auto migrate failed", "error", err)
		return err
	}
	return nil
}
