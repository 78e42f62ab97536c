package main

import (
	"context"
	"flag"
	"log"
	"time"

	"comictracker/internal/anilist"
	"comictracker/internal/entries"
	"comictracker/pkg/database"
)

func main() {
	limit := flag.Int("limit", 30, "max entries to process")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	autofill := anilist.NewAutofiller(anilist.NewClient(), entries.NewRepo(db))

	summary, err := autofill.Run(ctx, *limit)
	if err != nil {
		log.Fatalf("autofill failed: %v", err)
	}

	log.Printf("autofill done: scanned=%d updated=%d skipped=%d failed=%d in %.1fs",
		summary.Scanned, summary.Updated, summary.Skipped, summary.Failed, summary.DurationSeconds)
}
