package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"hozur_backend/internals/configs"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         configs.NewGormLogger(),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// ConnectDB opens the database selected by DB_DRIVER (postgres | sqlite).
func ConnectDB() {
	driver := strings.ToLower(configs.GetEnv("DB_DRIVER", "postgres"))

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		path := configs.GetEnv("SQLITE_PATH", "hozur.db")
		log.Printf("🔌 Opening SQLite at %s ...", path)
		db, err = OpenSQLite("file:" + path + "?cache=shared&_busy_timeout=5000")
	default:
		log.Println("🔌 Connecting to PostgreSQL ...")
		db, err = OpenPostgres(PostgresDSN())
	}
	if err != nil {
		log.Fatalf("❌ Failed to connect DB: %v", err)
	}
	DB = db
	log.Printf("✅ DB connected (%s).", db.Dialector.Name())
}

func PostgresDSN() string {
	if url := configs.GetEnv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=hozur&options=-c statement_timeout=5000",
		configs.GetEnv("DB_USER", "postgres"),
		configs.GetEnv("DB_PASSWORD"),
		configs.GetEnv("DB_HOST", "localhost"),
		configs.GetEnv("DB_PORT", "5432"),
		configs.GetEnv("DB_NAME", "hozur"),
		configs.GetEnv("DB_SSLMODE", "disable"),
	)
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // PgBouncer transaction pooling
	}), gormConfig())
}

// OpenSQLite is used for local development and by the package tests
// (DSN "file:<name>?mode=memory&cache=shared").
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Single writer; also keeps a shared in-memory database alive.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func TunePool() {
	if DB == nil || DB.Dialector.Name() != "postgres" {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(configs.GetEnvInt("DB_MAX_OPEN", 20))
	sqlDB.SetMaxIdleConns(configs.GetEnvInt("DB_MAX_IDLE", 10))
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func WarmUpQueries() {
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := ping(); err != nil {
			log.Printf("warm-up ping err: %v", err)
			return
		}
		var n int64
		if err := DB.Table("attendance_sessions").Count(&n).Error; err != nil {
			log.Printf("warm-up query err: %v", err)
		}
	}()
}

func ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
