package helper

import (
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const PostgresConnectionString = "host=localhost port=5432 user=postgres password=postgres dbname=postgres"

// OpenTestDB connects to the local test database and skips the test when it is unreachable.
func OpenTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(postgres.Open(PostgresConnectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}

	sqlDB.SetConnMaxLifetime(time.Minute)

	if err := sqlDB.Ping(); err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}

	log.Info().Str("connection", PostgresConnectionString).Msg("connected to test database")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
