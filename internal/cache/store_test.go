package cache

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/db"
)

type failingBackend struct{ err error }

func (f failingBackend) Put(context.Context, Entry) error { return f.err }
func (f failingBackend) Get(context.Context, Partition, string) (Entry, bool, error) {
	return Entry{}, false, f.err
}
func (f failingBackend) Clear(context.Context, ...Partition) error { return f.err }
func (f failingBackend) Close() error                              { return nil }

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func sqlBackend(t *testing.T) Backend {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return NewSQLBackend(d)
}

func backends(t *testing.T) map[string]Backend {
	out := map[string]Backend{
		"memory": NewMemoryBackend(),
		"sql":    sqlBackend(t),
	}
	if addr := os.Getenv("LAWCARDS_TEST_REDIS"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		if err := rdb.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("flush redis: %v", err)
		}
		out["redis"] = NewRedisBackend(rdb)
	}
	return out
}

func sampleCategories() []content.Category {
	return []content.Category{
		{ID: "a", NameLocal: "ก", Questions: []content.Card{{ID: "มาตรา 1", Question: "q", Answer: "a"}, {ID: "มาตรา 2", Question: "q", Answer: "a"}}},
		{ID: "b", NameLocal: "ข", Questions: []content.Card{{ID: "มาตรา 3", Question: "q", Answer: "a", Title: "t"}}},
	}
}

func TestStore_RoundTripAndMetadata(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fixedClock{t: time.Date(2025, time.October, 31, 10, 0, 0, 0, time.UTC)}
			s := New(b, WithClock(clock.Now), WithLocation(time.UTC))

			in := sampleCategories()
			if err := s.Save(ctx, Categories, in); err != nil {
				t.Fatalf("save: %v", err)
			}
			var out []content.Category
			if !s.Load(ctx, Categories, &out) {
				t.Fatalf("expected hit")
			}
			if !reflect.DeepEqual(in, out) {
				t.Fatalf("round trip mismatch:\n%+v\n%+v", in, out)
			}

			md, ok := s.Metadata(ctx, Categories)
			if !ok {
				t.Fatalf("expected metadata")
			}
			if md.DerivedCount != 3 || md.FormatVersion != FormatVersion || md.TimestampMs != clock.t.UnixMilli() {
				t.Fatalf("metadata: %+v", md)
			}
			if md.HumanDate != "31 ต.ค. 2568" {
				t.Fatalf("human date: %q", md.HumanDate)
			}
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := New(sqlBackend(t))
	_ = s.Save(ctx, Descriptions, content.Descriptions{"x": {SectionID: "x"}})
	_ = s.Save(ctx, Descriptions, content.Descriptions{"y": {SectionID: "y"}, "z": {SectionID: "z"}})

	var got content.Descriptions
	if !s.Load(ctx, Descriptions, &got) || len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if _, ok := got["x"]; ok {
		t.Fatalf("old entry survived replace")
	}
	if md, _ := s.Metadata(ctx, Descriptions); md.DerivedCount != 2 {
		t.Fatalf("count: %+v", md)
	}
}

func TestStore_IsValidBoundary(t *testing.T) {
	ctx := context.Background()
	saved := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: saved}
	s := New(NewMemoryBackend(), WithClock(clock.Now))

	if s.IsValid(ctx, 7) {
		t.Fatalf("empty cache must be invalid")
	}
	if err := s.Save(ctx, Categories, sampleCategories()); err != nil {
		t.Fatalf("save: %v", err)
	}

	week := 7 * 24 * time.Hour
	clock.t = saved.Add(week - time.Millisecond)
	if !s.IsValid(ctx, 7) {
		t.Fatalf("valid just before the boundary")
	}
	clock.t = saved.Add(week)
	if s.IsValid(ctx, 7) {
		t.Fatalf("invalid at the boundary")
	}
	if s.IsValid(ctx, 0) {
		t.Fatalf("zero days falls back to the default")
	}
}

func TestStore_ClearKeepsScoresAndAssets(t *testing.T) {
	ctx := context.Background()
	s := New(sqlBackend(t))
	for _, p := range Partitions {
		if err := s.Save(ctx, p, map[string]string{"p": string(p)}); err != nil {
			t.Fatalf("save %s: %v", p, err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, p := range Partitions {
		_, ok := s.Metadata(ctx, p)
		wantGone := p == Categories || p == Descriptions
		if ok == wantGone {
			t.Fatalf("partition %s present=%v after clear", p, ok)
		}
	}
}

func TestStore_ReadFailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk gone")
	s := New(failingBackend{err: boom})

	var out []content.Category
	if s.Load(ctx, Categories, &out) {
		t.Fatalf("load should miss")
	}
	if _, ok := s.Metadata(ctx, Categories); ok {
		t.Fatalf("metadata should miss")
	}
	if s.IsValid(ctx, 7) {
		t.Fatalf("validity should be false")
	}

	var sue *StoreUnavailableError
	if err := s.Save(ctx, Categories, out); !errors.As(err, &sue) || !errors.Is(err, boom) {
		t.Fatalf("save: want StoreUnavailableError, got %v", err)
	}
	if err := s.Clear(ctx); !errors.As(err, &sue) {
		t.Fatalf("clear: want StoreUnavailableError, got %v", err)
	}
}

func TestStore_UnknownPartition(t *testing.T) {
	s := New(NewMemoryBackend())
	if err := s.Save(context.Background(), Partition("nope"), 1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestThaiDate(t *testing.T) {
	got := ThaiDate(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC))
	if got != "5 ม.ค. 2567" {
		t.Fatalf("got %q", got)
	}
}

// batch is self-checking: every element of Items equals N.
type batch struct {
	N     int   `json:"n"`
	Items []int `json:"items"`
}

func (b batch) DerivedCount() int { return b.N }

func newBatch(n int) batch {
	b := batch{N: n, Items: make([]int, n%7+1)}
	for i := range b.Items {
		b.Items[i] = n
	}
	return b
}

func (b batch) consistent() bool {
	if len(b.Items) != b.N%7+1 {
		return false
	}
	for _, v := range b.Items {
		if v != b.N {
			return false
		}
	}
	return true
}

func TestStore_ConcurrentSavesReplaceWholeEntries(t *testing.T) {
	const writers, saves, readers = 8, 20, 4
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(b)
			if err := s.Save(ctx, Categories, newBatch(1)); err != nil {
				t.Fatalf("seed: %v", err)
			}

			var wg sync.WaitGroup
			done := make(chan struct{})
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < saves; i++ {
						if err := s.Save(ctx, Categories, newBatch(w*100+i+1)); err != nil {
							t.Errorf("save: %v", err)
							return
						}
					}
				}(w)
			}
			var rg sync.WaitGroup
			for r := 0; r < readers; r++ {
				rg.Add(1)
				go func() {
					defer rg.Done()
					for {
						select {
						case <-done:
							return
						default:
						}
						var got batch
						if !s.Load(ctx, Categories, &got) {
							t.Errorf("entry vanished during concurrent saves")
							return
						}
						if !got.consistent() {
							t.Errorf("torn read: %+v", got)
							return
						}
					}
				}()
			}
			wg.Wait()
			close(done)
			rg.Wait()

			var last batch
			if !s.Load(ctx, Categories, &last) || !last.consistent() {
				t.Fatalf("final entry: %+v", last)
			}
			md, ok := s.Metadata(ctx, Categories)
			if !ok || md.DerivedCount != last.N {
				t.Fatalf("metadata %+v does not match payload n=%d", md, last.N)
			}
		})
	}
}
