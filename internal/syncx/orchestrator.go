package syncx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/lawcards/internal/assets"
	"github.com/mind-engage/lawcards/internal/cache"
	"github.com/mind-engage/lawcards/internal/content"
	"github.com/mind-engage/lawcards/internal/logger"
	"github.com/mind-engage/lawcards/internal/remote"
)

// FlagTTL is how long the downloading/success/error flags stay visible.
const FlagTTL = 5 * time.Second

var ErrDownloadInProgress = errors.New("sync: download already in progress")

type State string

const (
	StateIdle             State = "idle"
	StateCheckingCache    State = "checking_cache"
	StateCacheHit         State = "cache_hit"
	StateCacheMissOrStale State = "cache_miss_or_stale"
	StateDownloading      State = "downloading"
	StateSuccess          State = "success"
	StateFailed           State = "failed"
)

// Catalog supplies category configuration and filters.
type Catalog interface {
	Categories() []content.Category
	EffectiveFilter(categoryID string) *content.Filter
	ClearFilterCache()
}

// Remote fetches content from the origin. *remote.Client satisfies it.
type Remote interface {
	FetchCategories(ctx context.Context, cats []content.Category) []remote.CategoryResult
	FetchAllDescriptions(ctx context.Context, sectionsByCategory map[string][]string) content.Descriptions
}

// AssetDownloader refreshes binary assets. *assets.Downloader satisfies it.
type AssetDownloader interface {
	DownloadAll(ctx context.Context) ([]assets.Result, error)
}

// Status is the UI-facing view of the orchestrator.
type Status struct {
	State           State           `json:"state"`
	CacheAvailable  bool            `json:"cacheAvailable"`
	Metadata        *cache.Metadata `json:"metadata,omitempty"`
	Downloading     bool            `json:"downloading"`
	DownloadSuccess bool            `json:"downloadSuccess"`
	Error           string          `json:"error,omitempty"`
}

// DownloadResult summarizes a completed refresh.
type DownloadResult struct {
	RunID        string             `json:"runId"`
	Categories   []content.Category `json:"-"`
	Questions    int                `json:"questions"`
	Descriptions int                `json:"descriptions"`
	Assets       []assets.Result    `json:"assets,omitempty"`
	Metadata     *cache.Metadata    `json:"metadata,omitempty"`
}

type Clock func() time.Time

type Config struct {
	Catalog    Catalog
	Remote     Remote
	Store      *cache.Store
	Assets     AssetDownloader // optional
	Events     EventSink       // optional
	MaxAgeDays int
}

// Orchestrator decides between cache and network and drives full refreshes.
type Orchestrator struct {
	catalog    Catalog
	remote     Remote
	store      *cache.Store
	assets     AssetDownloader
	events     EventSink
	maxAgeDays int
	log        *logger.Logger

	// schedule runs f after d; replaced in tests.
	schedule func(d time.Duration, f func())
	newRunID func() string

	mu     sync.Mutex
	status Status
	gen    uint64 // bumps on every flag change so stale timers are ignored
}

func New(cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = cache.DefaultMaxAgeDays
	}
	return &Orchestrator{
		catalog:    cfg.Catalog,
		remote:     cfg.Remote,
		store:      cfg.Store,
		assets:     cfg.Assets,
		events:     cfg.Events,
		maxAgeDays: cfg.MaxAgeDays,
		log:        logger.OrNop(log),
		schedule:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		newRunID:   func() string { return uuid.NewString() },
		status:     Status{State: StateIdle},
	}
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.status.State = s
	o.mu.Unlock()
}

// CheckCache refreshes the cache availability flag and metadata.
func (o *Orchestrator) CheckCache(ctx context.Context) (cache.Metadata, bool) {
	md, ok := o.store.Metadata(ctx, cache.Categories)
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.status.CacheAvailable = true
		o.status.Metadata = &md
	}
	return md, ok
}

// LoadCategories returns cached categories when they are fresh, otherwise
// fetches and caches them. It reports false on any failure; callers then
// fall back to bundled content.
func (o *Orchestrator) LoadCategories(ctx context.Context) ([]content.Category, bool) {
	defer o.setState(StateIdle)
	o.setState(StateCheckingCache)

	var cached []content.Category
	hit := o.store.Load(ctx, cache.Categories, &cached)
	if hit && len(cached) > 0 && o.store.IsValid(ctx, o.maxAgeDays) {
		o.setState(StateCacheHit)
		o.CheckCache(ctx)
		o.log.Debug("categories served from cache", "categories", len(cached))
		return cached, true
	}
	o.setState(StateCacheMissOrStale)
	if hit {
		o.log.Info("cache is stale, refreshing from origin")
	} else {
		o.log.Info("no cache found, fetching from origin")
	}

	cats, err := o.fetchCategories(ctx)
	if err != nil {
		o.log.Warn("load categories from origin failed", "error", err)
		return nil, false
	}
	if err := o.store.Save(ctx, cache.Categories, cats); err != nil {
		o.log.Warn("persist categories failed", "error", err)
		return nil, false
	}
	o.CheckCache(ctx)
	return cats, true
}

// fetchCategories fetches every configured category. The dataset is all or
// nothing: any failed category fails the whole fetch.
func (o *Orchestrator) fetchCategories(ctx context.Context) ([]content.Category, error) {
	results := o.remote.FetchCategories(ctx, o.catalog.Categories())
	cats := make([]content.Category, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		cats = append(cats, r.Category)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cats, nil
}

// DownloadData clears cached content and downloads it again: categories,
// then descriptions, then binary assets. Only a category failure or a
// failed write of categories is returned; later steps are best effort.
func (o *Orchestrator) DownloadData(ctx context.Context) (DownloadResult, error) {
	o.mu.Lock()
	if o.status.Downloading {
		o.mu.Unlock()
		return DownloadResult{}, ErrDownloadInProgress
	}
	o.gen++
	o.status.State = StateDownloading
	o.status.Downloading = true
	o.status.DownloadSuccess = false
	o.status.Error = ""
	cacheAvailable := o.status.CacheAvailable
	o.mu.Unlock()

	res := DownloadResult{RunID: o.newRunID()}
	log := o.log.With("run", res.RunID)
	o.event(ctx, res.RunID, EventDownloadStarted, nil)

	if err := o.download(ctx, log, cacheAvailable, &res); err != nil {
		log.Error("download failed", "error", err)
		o.event(ctx, res.RunID, EventDownloadFailed, map[string]string{"error": err.Error()})
		o.finish(StateFailed, UserMessage(err))
		return res, err
	}

	o.event(ctx, res.RunID, EventDownloadCompleted, res)
	o.finish(StateSuccess, "")
	log.Info("download completed", "questions", res.Questions, "descriptions", res.Descriptions)
	return res, nil
}

func (o *Orchestrator) download(ctx context.Context, log *logger.Logger, cacheAvailable bool, res *DownloadResult) error {
	if !cacheAvailable {
		_, cacheAvailable = o.store.Metadata(ctx, cache.Categories)
	}
	if cacheAvailable {
		log.Info("clearing old cache")
		if err := o.store.Clear(ctx); err != nil {
			return err
		}
		o.mu.Lock()
		o.status.CacheAvailable = false
		o.status.Metadata = nil
		o.mu.Unlock()
	}
	o.catalog.ClearFilterCache()

	cats, err := o.fetchCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	// Categories must be stored before descriptions are derived from them.
	if err := o.store.Save(ctx, cache.Categories, cats); err != nil {
		return err
	}
	res.Categories = cats
	res.Questions = content.TotalQuestions(cats)
	o.event(ctx, res.RunID, EventCategoriesSaved, map[string]int{"categories": len(cats), "questions": res.Questions})

	descs := o.remote.FetchAllDescriptions(ctx, o.sectionIDs(cats))
	switch {
	case len(descs) == 0:
		log.Warn("no descriptions fetched; keeping cached descriptions untouched")
		o.event(ctx, res.RunID, EventDescriptionsSkipped, nil)
	default:
		if err := o.store.Save(ctx, cache.Descriptions, descs); err != nil {
			log.Warn("persist descriptions failed", "error", err)
			o.event(ctx, res.RunID, EventDescriptionsSkipped, map[string]string{"error": err.Error()})
			break
		}
		res.Descriptions = len(descs)
		o.event(ctx, res.RunID, EventDescriptionsSaved, map[string]int{"descriptions": len(descs)})
	}

	if o.assets != nil {
		results, err := o.assets.DownloadAll(ctx)
		if err != nil {
			log.Warn("asset download incomplete", "error", err)
		}
		res.Assets = results
		o.event(ctx, res.RunID, EventAssetsSaved, results)
	}

	if md, ok := o.CheckCache(ctx); ok {
		res.Metadata = &md
	}
	return nil
}

// sectionIDs maps each category to the ids whose descriptions are wanted:
// the filter's allow-list when there is one, otherwise every card id.
func (o *Orchestrator) sectionIDs(cats []content.Category) map[string][]string {
	out := make(map[string][]string, len(cats))
	for _, c := range cats {
		if f := o.catalog.EffectiveFilter(c.ID); f != nil {
			out[c.ID] = append([]string(nil), f.AllowedIDs...)
			continue
		}
		ids := make([]string, 0, len(c.Questions))
		for _, q := range c.Questions {
			ids = append(ids, q.ID)
		}
		out[c.ID] = ids
	}
	return out
}

// finish records the outcome and schedules the transient flags to clear.
func (o *Orchestrator) finish(state State, msg string) {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.status.State = state
	o.status.Downloading = false
	o.status.DownloadSuccess = state == StateSuccess
	o.status.Error = msg
	o.mu.Unlock()

	o.schedule(FlagTTL, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.gen != gen {
			return
		}
		o.status.DownloadSuccess = false
		o.status.Error = ""
		o.status.State = StateIdle
	})
}

func (o *Orchestrator) event(ctx context.Context, runID, typ string, data any) {
	if o.events == nil {
		return
	}
	if err := o.events.Append(ctx, runID, typ, data); err != nil {
		o.log.Warn("record sync event failed", "type", typ, "error", err)
	}
}

// UserMessage renders err as a short Thai message for end users.
func UserMessage(err error) string {
	var sue *cache.StoreUnavailableError
	switch {
	case err == nil:
		return ""
	case remote.IsNotConfigured(err):
		return "API ไม่ได้ถูกกำหนดค่า ไม่สามารถโหลดข้อมูลได้"
	case errors.As(err, &sue):
		return "ไม่สามารถบันทึกข้อมูลลงในเครื่องได้ กรุณาลองใหม่อีกครั้ง"
	case remote.IsNetwork(err):
		return "ไม่สามารถโหลดข้อมูลได้ กรุณาตรวจสอบการเชื่อมต่อออินเทอร์เน็ต"
	default:
		return "ข้อมูลจากเซิร์ฟเวอร์ไม่ถูกต้อง กรุณาลองใหม่ภายหลัง"
	}
}
