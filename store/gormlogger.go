package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

type GormLogger struct {
	Log zerolog.Logger
}

func (g GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	switch level {
	case logger.Silent:
		return GormLogger{Log: g.Log.Level(zerolog.Disabled)}
	case logger.Error:
		return GormLogger{Log: g.Log.Level(zerolog.ErrorLevel)}
	case logger.Warn:
		return GormLogger{Log: g.Log.Level(zerolog.WarnLevel)}
	default:
		return g
	}
}

func (g GormLogger) Info(ctx context.Context, s string, i ...interface{}) {
	g.Log.Info().Msgf(s, i...)
}

func (g GormLogger) Warn(ctx context.Context, s string, i ...interface{}) {
	g.Log.Warn().Msgf(s, i...)
}

func (g GormLogger) Error(ctx context.Context, s string, i ...interface{}) {
	g.Log.Error().Msgf(s, i...)
}

func (g GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rowsAffected := fc()

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		g.Log.Error().Dur("elapsed", elapsed).Int64("rowsAffected", rowsAffected).Err(err).Msg(sql)
	case elapsed > slowQueryThreshold:
		g.Log.Warn().Dur("elapsed", elapsed).Int64("rowsAffected", rowsAffected).Msg(sql)
	default:
		g.Log.Trace().Dur("elapsed", elapsed).Int64("rowsAffected", rowsAffected).Msg(sql)
	}
}
