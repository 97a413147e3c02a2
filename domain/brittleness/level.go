package brittleness

import "math"

// Level is the five-step ordinal severity ladder
type Level int

const (
	LevelI Level = iota + 1
	LevelII
	LevelIII
	LevelIV
	LevelV
)

// Band is a half-open score band [Lower, Upper); the top band is closed.
type Band struct {
	Level Level
	Lower float64
	Upper float64
}

// Bands are fixed and contiguous over [0,100]
var Bands = []Band{
	{Level: LevelI, Lower: 0, Upper: 20},
	{Level: LevelII, Lower: 20, Upper: 40},
	{Level: LevelIII, Lower: 40, Upper: 60},
	{Level: LevelIV, Lower: 60, Upper: 80},
	{Level: LevelV, Lower: 80, Upper: 100},
}

// LevelForScore maps any score to exactly one level. Scores are clamped
// to [0,100] and NaN counts as 0.
func LevelForScore(score float64) Level {
	s := ClampScore(score)
	for _, b := range Bands {
		if s >= b.Lower && s < b.Upper {
			return b.Level
		}
	}
	return LevelV
}

// ClampScore clamps to [0,100]
func ClampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Code returns the roman numeral of the level
func (l Level) Code() string {
	switch l {
	case LevelI:
		return "I"
	case LevelII:
		return "II"
	case LevelIII:
		return "III"
	case LevelIV:
		return "IV"
	case LevelV:
		return "V"
	default:
		return "?"
	}
}

// Classification is the series-level verdict
type Classification struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Label   string `json:"label"`
	Pattern string `json:"pattern"`
}
