package quiz

import (
	"math"
	"strings"
	"testing"
)

func TestCountdownTime(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty clamps to min", "", 10},
		{"short", strings.Repeat("ก", 100), 15},
		{"rounds", strings.Repeat("a", 30), 12}, // 11.5 rounds half away from zero
		{"long clamps to max", strings.Repeat("ก", 5000), 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CountdownTime(tc.text, DefaultTimeSettings); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestAnswerScore(t *testing.T) {
	if s := AnswerScore(false, 10, 10); s != (Score{}) {
		t.Fatalf("wrong answer scored %+v", s)
	}
	if s := AnswerScore(true, 10, 10); s.Base != 1 || s.Bonus != 1 || s.Total != 2 {
		t.Fatalf("instant answer: %+v", s)
	}
	if s := AnswerScore(true, 1, 3); s.Bonus != 0.33 || math.Abs(s.Total-1.33) > 1e-9 {
		t.Fatalf("partial: %+v", s)
	}
	if s := AnswerScore(true, -5, 10); s.Bonus != 0 || s.Total != 1 {
		t.Fatalf("negative remaining: %+v", s)
	}
	if s := AnswerScore(true, 5, 0); s.Total != 1 {
		t.Fatalf("zero total: %+v", s)
	}
}

func TestFormatTime(t *testing.T) {
	for in, want := range map[float64]string{-3: "0", 9.7: "9", 60: "1:00", 125.4: "2:05"} {
		if got := FormatTime(in); got != want {
			t.Fatalf("FormatTime(%v) = %q, want %q", in, got, want)
		}
	}
}
