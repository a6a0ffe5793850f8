package highscore

import (
	"context"
	"sync"
	"time"

	"github.com/mind-engage/lawcards/internal/cache"
)

type HighScore struct {
	CategoryID     string  `json:"categoryId"`
	Score          int     `json:"score"`
	Percentage     float64 `json:"percentage"`
	TotalQuestions int     `json:"totalQuestions"`
	AchievedAt     int64   `json:"achievedAt"` // unix ms
}

// Scores is the high-scores partition payload, keyed by category id.
type Scores map[string]HighScore

func (s Scores) DerivedCount() int { return len(s) }

// Book reads and writes high scores. Updates are read-modify-write on a
// single partition entry, so they are serialized here.
type Book struct {
	store *cache.Store
	now   func() time.Time
	mu    sync.Mutex
}

func New(store *cache.Store, now func() time.Time) *Book {
	if now == nil {
		now = time.Now
	}
	return &Book{store: store, now: now}
}

func (b *Book) All(ctx context.Context) Scores {
	var s Scores
	if !b.store.Load(ctx, cache.HighScores, &s) || s == nil {
		return Scores{}
	}
	return s
}

func (b *Book) Get(ctx context.Context, categoryID string) (HighScore, bool) {
	hs, ok := b.All(ctx)[categoryID]
	return hs, ok
}

// Save stores hs unconditionally, replacing any score for its category.
func (b *Book) Save(ctx context.Context, hs HighScore) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, hs)
}

func (b *Book) save(ctx context.Context, hs HighScore) error {
	all := b.All(ctx)
	all[hs.CategoryID] = hs
	return b.store.Save(ctx, cache.HighScores, all)
}

// CheckAndSave records a result when there is no score for the category yet
// or its percentage is strictly higher than the stored one.
func (b *Book) CheckAndSave(ctx context.Context, categoryID string, score int, percentage float64, total int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.All(ctx)[categoryID]; ok && percentage <= prev.Percentage {
		return false, nil
	}
	hs := HighScore{
		CategoryID:     categoryID,
		Score:          score,
		Percentage:     percentage,
		TotalQuestions: total,
		AchievedAt:     b.now().UnixMilli(),
	}
	if err := b.save(ctx, hs); err != nil {
		return false, err
	}
	return true, nil
}

// AchievedDate renders the achievement time as a Buddhist Era date.
func (hs HighScore) AchievedDate(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return cache.ThaiDate(time.UnixMilli(hs.AchievedAt).In(loc))
}
