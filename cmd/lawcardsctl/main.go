// Command lawcardsctl runs maintenance tasks against the local cache.
//
//	lawcardsctl sync
//	lawcardsctl status
//	lawcardsctl quiz -category <id> [-count 20] [-seed n]
//	lawcardsctl export-assets [-kind diagrams|documents] [-dir path]
//	lawcardsctl events [-run id] [-limit 50]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/mind-engage/lawcards/internal/app"
	"github.com/mind-engage/lawcards/internal/assets"
	"github.com/mind-engage/lawcards/internal/catalog"
	"github.com/mind-engage/lawcards/internal/config"
	"github.com/mind-engage/lawcards/internal/logger"
	"github.com/mind-engage/lawcards/internal/quiz"
	"github.com/mind-engage/lawcards/internal/storage"
	"github.com/mind-engage/lawcards/internal/syncx"
)

var commands = map[string]func(ctx context.Context, a *app.App, args []string) error{
	"sync":          runSync,
	"status":        runStatus,
	"quiz":          runQuiz,
	"export-assets": runExport,
	"events":        runEvents,
}

func main() {
	if len(os.Args) < 2 || commands[os.Args[1]] == nil {
		fmt.Fprintln(os.Stderr, "usage: lawcardsctl sync|status|quiz|export-assets|events [flags]")
		os.Exit(2)
	}
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	err = commands[os.Args[1]](ctx, a, os.Args[2:])
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runSync(ctx context.Context, a *app.App, _ []string) error {
	start := time.Now()
	res, err := a.Sync.DownloadData(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, syncx.UserMessage(err))
		return err
	}
	fmt.Fprintf(os.Stderr, "synced in %s\n", time.Since(start).Round(time.Millisecond))
	return printJSON(res)
}

func runStatus(ctx context.Context, a *app.App, _ []string) error {
	out := map[string]any{
		"valid":       a.Store.IsValid(ctx, a.Config.CacheMaxAgeDays),
		"sections":    a.Sections.TotalCount(),
		"high_scores": len(a.HighScores.All(ctx)),
	}
	if md, ok := a.Sync.CheckCache(ctx); ok {
		out["categories"] = md
	}
	for _, k := range []catalog.AssetKind{catalog.Diagrams, catalog.Documents} {
		if md, ok := assets.Metadata(ctx, a.Store, k); ok {
			out[string(k)] = md
		}
	}
	return printJSON(out)
}

func runQuiz(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("quiz", flag.ContinueOnError)
	categoryID := fs.String("category", "", "category id")
	count := fs.Int("count", quiz.DefaultCount, "number of questions")
	seed := fs.Int64("seed", -1, "random seed (-1 = random)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *categoryID == "" {
		return errors.New("-category required")
	}
	cats, ok := a.Sync.LoadCategories(ctx)
	if !ok {
		return errors.New("no cached or remote categories; run sync first")
	}
	for _, c := range cats {
		if c.ID != *categoryID {
			continue
		}
		var rnd *rand.Rand
		if *seed >= 0 {
			rnd = rand.New(rand.NewPCG(uint64(*seed), uint64(*seed)+1))
		}
		cards := a.Catalog.FilterCards(c.ID, c.Questions)
		type timedItem struct {
			quiz.Item
			TimeLimit string `json:"timeLimit"`
		}
		var (
			items []timedItem
			best  float64
		)
		for _, it := range quiz.New(a.Markers, rnd).Generate(cards, *count) {
			limit := float64(quiz.CountdownTime(it.Prompt, quiz.DefaultTimeSettings))
			items = append(items, timedItem{Item: it, TimeLimit: quiz.FormatTime(limit)})
			best += quiz.AnswerScore(true, limit, limit).Total
		}
		fmt.Fprintf(os.Stderr, "%d questions, best possible score %.2f\n", len(items), best)
		return printJSON(items)
	}
	return fmt.Errorf("unknown category %q", *categoryID)
}

func runExport(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("export-assets", flag.ContinueOnError)
	kind := fs.String("kind", "", "diagrams|documents (default both)")
	dir := fs.String("dir", a.Config.BlobBasePath, "target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	blobs, err := storage.NewFSStore(*dir)
	if err != nil {
		return err
	}
	kinds := []catalog.AssetKind{catalog.Diagrams, catalog.Documents}
	if *kind != "" {
		kinds = []catalog.AssetKind{catalog.AssetKind(*kind)}
	}
	var all []assets.Exported
	for _, k := range kinds {
		out, err := assets.Export(ctx, a.Store, blobs, k)
		all = append(all, out...)
		if err != nil {
			return fmt.Errorf("export %s: %w", k, err)
		}
	}
	return printJSON(all)
}

func runEvents(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	runID := fs.String("run", "", "sync run id")
	limit := fs.Int("limit", 50, "max events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var (
		evs []syncx.Event
		err error
	)
	if *runID != "" {
		evs, err = a.Events.Run(ctx, *runID)
	} else {
		evs, err = a.Events.Recent(ctx, *limit)
	}
	if err != nil {
		return err
	}
	return printJSON(evs)
}
