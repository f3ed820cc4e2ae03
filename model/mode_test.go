package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	assert := assert.New(t)

	mode, err := ParseMode("cost")
	assert.NoError(err)
	assert.Equal(CostKind, mode.Kind())
	assert.Equal(0.0, mode.Float())
	assert.True(mode.RequiresCost())
	assert.False(mode.RequiresTime())

	mode, err = ParseMode("TIME")
	assert.NoError(err)
	assert.Equal(TimeKind, mode.Kind())
	assert.False(mode.RequiresCost())
	assert.True(mode.RequiresTime())

	mode, err = ParseMode("random")
	assert.NoError(err)
	assert.True(mode.IsRandom())
	assert.Equal(-1.0, mode.Float())
	assert.True(mode.RequiresCost())
	assert.False(mode.RequiresTime())

	mode, err = ParseMode("0.3")
	assert.NoError(err)
	assert.Equal(WeightKind, mode.Kind())
	assert.Equal(0.3, mode.Float())
	assert.True(mode.RequiresCost())
	assert.True(mode.RequiresTime())

	mode, err = ParseMode("-1")
	assert.NoError(err)
	assert.True(mode.IsRandom())

	for _, invalid := range []string{"fast", "1.5", "-0.5", "", "NaN"} {
		_, err = ParseMode(invalid)
		assert.Error(err, invalid)
		assert.True(IsValidationError(err), invalid)
	}
}

func TestMode_UnmarshalJSON(t *testing.T) {
	assert := assert.New(t)

	var request struct {
		Mode Mode `json:"mode"`
	}

	assert.NoError(json.Unmarshal([]byte(`{"mode":"time"}`), &request))
	assert.Equal(TimeKind, request.Mode.Kind())

	assert.NoError(json.Unmarshal([]byte(`{"mode":0.75}`), &request))
	assert.Equal(0.75, request.Mode.Float())

	assert.NoError(json.Unmarshal([]byte(`{"mode":-1}`), &request))
	assert.True(request.Mode.IsRandom())

	assert.NoError(json.Unmarshal([]byte(`{"mode":0}`), &request))
	assert.False(request.Mode.RequiresTime())

	err := json.Unmarshal([]byte(`{"mode":2}`), &request)
	assert.Error(err)

	err = json.Unmarshal([]byte(`{"mode":true}`), &request)
	assert.Error(err)
}

func TestMode_MarshalJSON(t *testing.T) {
	assert := assert.New(t)

	out, err := json.Marshal(RandomMode())
	assert.NoError(err)
	assert.Equal(`"random"`, string(out))

	weight, err := WeightMode(0.25)
	assert.NoError(err)
	out, err = json.Marshal(weight)
	assert.NoError(err)
	assert.Equal(`0.25`, string(out))
}
