package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Partition string

const (
	Categories   Partition = "categories"
	Descriptions Partition = "descriptions"
	HighScores   Partition = "high-scores"
	Diagrams     Partition = "diagrams"
	Documents    Partition = "documents"
)

// Partitions lists every partition the store knows about.
var Partitions = []Partition{Categories, Descriptions, HighScores, Diagrams, Documents}

func (p Partition) Valid() bool {
	for _, q := range Partitions {
		if p == q {
			return true
		}
	}
	return false
}

// FormatVersion is stamped on every entry written by this build.
const FormatVersion = "1.0"

// singletonKey is the one key each partition holds.
const singletonKey = "data"

// Entry is one stored blob with its bookkeeping.
type Entry struct {
	Partition     Partition
	Key           string
	Payload       json.RawMessage
	TimestampMs   int64
	FormatVersion string
	DerivedCount  int
	SizeBytes     int64
}

// Backend persists entries. Put must replace an entry atomically; Clear must
// remove all given partitions in one step.
type Backend interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, p Partition, key string) (Entry, bool, error)
	Clear(ctx context.Context, parts ...Partition) error
	Close() error
}

// StoreUnavailableError reports a write-path failure of the backing store.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("cache: store unavailable during %s: %v", e.Op, e.Err)
}
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// Metadata describes a stored entry without its payload.
type Metadata struct {
	TimestampMs   int64  `json:"timestamp"`
	HumanDate     string `json:"date"`
	DerivedCount  int    `json:"count"`
	FormatVersion string `json:"version"`
	SizeBytes     int64  `json:"sizeBytes,omitempty"`
}

var thaiMonths = [12]string{
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

// ThaiDate formats t in the Buddhist Era calendar, e.g. "31 ต.ค. 2568".
func ThaiDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), thaiMonths[t.Month()-1], t.Year()+543)
}
