package quiz

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// TimeSettings controls how long a question stays on screen.
type TimeSettings struct {
	BaseSeconds    float64 `json:"baseTimePerQuestion"`
	PerCharSeconds float64 `json:"timePerCharacter"`
	MaxSeconds     float64 `json:"maxTimePerQuestion"`
	MinSeconds     float64 `json:"minTimePerQuestion"`
}

var DefaultTimeSettings = TimeSettings{
	BaseSeconds:    10,
	PerCharSeconds: 0.05,
	MaxSeconds:     60,
	MinSeconds:     10,
}

// CountdownTime returns the whole seconds allowed for a question:
// base + per-character time, clamped to [min, max].
func CountdownTime(question string, s TimeSettings) int {
	t := s.BaseSeconds + float64(utf8.RuneCountInString(question))*s.PerCharSeconds
	t = math.Min(s.MaxSeconds, math.Max(s.MinSeconds, t))
	return int(math.Round(t))
}

type Score struct {
	Base  float64 `json:"baseScore"`
	Bonus float64 `json:"timeBonus"`
	Total float64 `json:"totalPoints"`
}

// AnswerScore gives a correct answer one point plus a bonus of up to one
// point for the share of time left. Wrong answers score zero.
func AnswerScore(correct bool, remaining, total float64) Score {
	if !correct {
		return Score{}
	}
	bonus := 0.0
	if total > 0 {
		bonus = math.Round(math.Max(0, remaining/total)*100) / 100
	}
	return Score{Base: 1, Bonus: bonus, Total: 1 + bonus}
}

// FormatTime renders seconds as "m:ss" from one minute up, else "s".
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds >= 60 {
		mins := int(seconds / 60)
		secs := int(math.Mod(seconds, 60))
		return fmt.Sprintf("%d:%02d", mins, secs)
	}
	return fmt.Sprintf("%d", int(seconds))
}
