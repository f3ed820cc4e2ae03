package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type ModeKind int

const (
	CostKind ModeKind = iota
	TimeKind
	RandomKind
	WeightKind
)

func (k ModeKind) String() string {
	switch k {
	case CostKind:
		return "cost"
	case TimeKind:
		return "time"
	case RandomKind:
		return "random"
	default:
		return "weight"
	}
}

// Mode selects the ranking objective: pure cost, pure time, a random baseline,
// or a weight in [0, 1] interpolating between cost (0) and time (1).
type Mode struct {
	kind   ModeKind
	weight float64
}

func CostMode() Mode {
	return Mode{kind: CostKind}
}

func TimeMode() Mode {
	return Mode{kind: TimeKind, weight: 1}
}

func RandomMode() Mode {
	return Mode{kind: RandomKind, weight: -1}
}

func WeightMode(w float64) (Mode, error) {
	if w < 0 || w > 1 || w != w {
		return Mode{}, NewValidationError("Invalid 'mode' value passed: '%g'.", w)
	}

	return Mode{kind: WeightKind, weight: w}, nil
}

func DefaultMode() Mode {
	return Mode{kind: WeightKind, weight: 0.5}
}

// ParseMode accepts the symbolic names or a number. -1 is random, [0, 1] a weight.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cost":
		return CostMode(), nil
	case "time":
		return TimeMode(), nil
	case "random":
		return RandomMode(), nil
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Mode{}, NewValidationError("Invalid 'mode' value passed: '%s'.", s)
	}

	return modeFromFloat(value)
}

func modeFromFloat(value float64) (Mode, error) {
	if value == -1 {
		return RandomMode(), nil
	}

	return WeightMode(value)
}

func (m Mode) Kind() ModeKind {
	return m.kind
}

func (m Mode) Float() float64 {
	return m.weight
}

func (m Mode) IsRandom() bool {
	return m.kind == RandomKind
}

func (m Mode) RequiresCost() bool {
	return m.weight < 1
}

func (m Mode) RequiresTime() bool {
	return m.weight > 0
}

func (m Mode) String() string {
	switch m.kind {
	case CostKind:
		return "cost"
	case TimeKind:
		return "time"
	case RandomKind:
		return "random"
	default:
		return strconv.FormatFloat(m.weight, 'g', -1, 64)
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if m.kind == WeightKind {
		return []byte(m.String()), nil
	}

	return []byte(strconv.Quote(m.String())), nil
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return NewValidationError("Invalid 'mode' value passed: '%s'.", string(data))
		}

		parsed, err := ParseMode(s)
		if err != nil {
			return err
		}

		*m = parsed
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return NewValidationError("Invalid 'mode' value passed: '%s'.", string(data))
	}

	parsed, err := modeFromFloat(value)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}
