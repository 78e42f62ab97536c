package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"comictracker/internal/activity"
	"comictracker/internal/entries"
	"comictracker/internal/importer"
	"comictracker/pkg/database"
	"comictracker/pkg/models"
)

func main() {
	var (
		in      = flag.String("file", "", "input .xlsx workbook path")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall import timeout")
	)
	flag.Parse()

	if *in == "" {
		log.Fatal("usage: import-xlsx -file <workbook.xlsx>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	imp := importer.New(
		entries.NewRepo(db),
		importer.NewRunRepo(db),
		activity.NewRepo(db),
		cfg.LockPath(),
	)

	run, err := imp.Import(ctx, filepath.Base(*in), f)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	if run.Status == models.RunSuccess {
		log.Printf("imported %s: %d rows, %d created, %d updated, %d duplicates, %d skipped (%d ms)",
			run.Filename, run.TotalRows, run.Created, run.Updated, run.Duplicates, run.Skipped, run.DurationMs)
	}
}
