package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/logger"
)

const (
	DefaultMaxAgeDays = 7
	dayMs             = 86_400_000
)

// Counter is implemented by payloads that know how many items they hold.
type Counter interface {
	DerivedCount() int
}

// Sizer is implemented by payloads that carry binary content.
type Sizer interface {
	SizeBytes() int64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLocation sets the zone used for human-readable dates.
func WithLocation(loc *time.Location) Option { return func(s *Store) { s.loc = loc } }

func WithLogger(l *logger.Logger) Option { return func(s *Store) { s.log = logger.OrNop(l) } }

// Store is the partitioned cache. Writes to a partition are serialized and
// readers never observe a half-written entry.
type Store struct {
	backend Backend
	now     func() time.Time
	loc     *time.Location
	log     *logger.Logger

	locks map[Partition]*sync.RWMutex
}

func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		now:     time.Now,
		loc:     time.Local,
		log:     logger.Nop(),
		locks:   make(map[Partition]*sync.RWMutex, len(Partitions)),
	}
	for _, p := range Partitions {
		s.locks[p] = &sync.RWMutex{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) lock(p Partition) (*sync.RWMutex, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cache: unknown partition %q", p)
	}
	return s.locks[p], nil
}

// Save replaces the partition's entry with payload, stamped with the
// current time and format version.
func (s *Store) Save(ctx context.Context, p Partition, payload any) error {
	mu, err := s.lock(p)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", p, err)
	}
	e := Entry{
		Partition:     p,
		Key:           singletonKey,
		Payload:       raw,
		TimestampMs:   s.now().UnixMilli(),
		FormatVersion: FormatVersion,
		DerivedCount:  derivedCount(payload),
	}
	if sz, ok := payload.(Sizer); ok {
		e.SizeBytes = sz.SizeBytes()
	}

	mu.Lock()
	defer mu.Unlock()
	if err := s.backend.Put(ctx, e); err != nil {
		return &StoreUnavailableError{Op: "save " + string(p), Err: err}
	}
	s.log.Debug("cache saved", "partition", p, "count", e.DerivedCount, "bytes", len(raw))
	return nil
}

func derivedCount(payload any) int {
	switch v := payload.(type) {
	case Counter:
		return v.DerivedCount()
	case []content.Category:
		return content.TotalQuestions(v)
	case content.Descriptions:
		return len(v)
	}
	return 0
}

func (s *Store) entry(ctx context.Context, p Partition) (Entry, bool) {
	mu, err := s.lock(p)
	if err != nil {
		return Entry{}, false
	}
	mu.RLock()
	defer mu.RUnlock()
	e, ok, err := s.backend.Get(ctx, p, singletonKey)
	if err != nil {
		s.log.Warn("cache read failed", "partition", p, "error", err)
		return Entry{}, false
	}
	return e, ok
}

// Load decodes the partition's payload into dst. It reports false on a miss
// and on any read or decode failure.
func (s *Store) Load(ctx context.Context, p Partition, dst any) bool {
	e, ok := s.entry(ctx, p)
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		s.log.Warn("cache payload undecodable", "partition", p, "error", err)
		return false
	}
	return true
}

// Metadata returns the bookkeeping of the partition's entry.
func (s *Store) Metadata(ctx context.Context, p Partition) (Metadata, bool) {
	e, ok := s.entry(ctx, p)
	if !ok {
		return Metadata{}, false
	}
	return Metadata{
		TimestampMs:   e.TimestampMs,
		HumanDate:     ThaiDate(time.UnixMilli(e.TimestampMs).In(s.loc)),
		DerivedCount:  e.DerivedCount,
		FormatVersion: e.FormatVersion,
		SizeBytes:     e.SizeBytes,
	}, true
}

// IsValid reports whether the categories entry exists and is younger than
// maxAgeDays. A non-positive maxAgeDays uses DefaultMaxAgeDays.
func (s *Store) IsValid(ctx context.Context, maxAgeDays int) bool {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	md, ok := s.Metadata(ctx, Categories)
	if !ok {
		return false
	}
	return s.now().UnixMilli()-md.TimestampMs < int64(maxAgeDays)*dayMs
}

// Clear removes the categories and descriptions entries. High scores and
// binary assets are kept.
func (s *Store) Clear(ctx context.Context) error {
	for _, p := range []Partition{Categories, Descriptions} {
		mu := s.locks[p]
		mu.Lock()
		defer mu.Unlock()
	}
	if err := s.backend.Clear(ctx, Categories, Descriptions); err != nil {
		return &StoreUnavailableError{Op: "clear", Err: err}
	}
	s.log.Info("cache cleared", "partitions", []Partition{Categories, Descriptions})
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
