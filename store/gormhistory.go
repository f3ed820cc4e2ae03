package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type GormHistory struct {
	db *gorm.DB
}

func OpenPostgres(connectionString string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{
		Logger: GormLogger{Log: log.With().Str("role", "sql").Caller().Logger()},
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database connection")
	}

	return db, nil
}

func NewGormHistory(db *gorm.DB) (*GormHistory, error) {
	err := db.AutoMigrate(&RankingRecord{})
	if err != nil {
		return nil, errors.Wrap(err, "cannot migrate ranking records")
	}

	return &GormHistory{db: db}, nil
}

func (g *GormHistory) Record(ctx context.Context, record RankingRecord) error {
	err := g.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return errors.Wrap(err, "cannot save ranking record")
	}

	return nil
}

func (g *GormHistory) List(ctx context.Context, limit int) ([]RankingRecord, error) {
	records := make([]RankingRecord, 0)

	err := g.db.WithContext(ctx).Model(&RankingRecord{}).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "cannot list ranking records")
	}

	return records, nil
}
