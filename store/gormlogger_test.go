package store

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	assert := assert.New(t)

	previous := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(previous)

	query := func() (string, int64) {
		return "SELECT * FROM ranking_records", 0
	}

	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"no error", nil, `"level":"trace"`},
		{"record not found", logger.ErrRecordNotFound, `"level":"trace"`},
		{"wrapped record not found", errors.Wrap(logger.ErrRecordNotFound, "cannot load ranking"), `"level":"trace"`},
		{"other error", errors.New("connection refused"), `"level":"error"`},
	}

	for _, test := range tests {
		var buffer bytes.Buffer
		gormLogger := GormLogger{Log: zerolog.New(&buffer).Level(zerolog.TraceLevel)}

		gormLogger.Trace(context.TODO(), time.Now(), query, test.err)
		assert.Contains(buffer.String(), test.level, test.name)
	}
}
