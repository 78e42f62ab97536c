package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"comictracker/internal/entries"
	"comictracker/internal/export"
	"comictracker/pkg/database"
	"comictracker/pkg/models"
)

func main() {
	var (
		out      = flag.String("out", "data/comictracker-export.xlsx", "output workbook path")
		typeFlag = flag.String("type", "", "restrict to one entry type (MANHWA, MANHUA, LIGHT_NOVEL, WESTERN)")
		noAlts   = flag.Bool("no-alt-titles", false, "leave alternate titles out")
		noCovers = flag.Bool("no-covers", false, "leave cover columns out")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	opts := export.DefaultOptions()
	if *typeFlag != "" {
		opts.Type = models.ParseEntryType(*typeFlag)
		if opts.Type == "" {
			log.Fatalf("unknown type %q", *typeFlag)
		}
	}
	opts.IncludeAltTitles = !*noAlts
	opts.IncludeCovers = !*noCovers

	builder := export.NewBuilder(entries.NewRepo(db))
	f, err := builder.Build(ctx, opts)
	if err != nil {
		log.Fatalf("build export failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("ensure output dir: %v", err)
	}
	if err := f.SaveAs(*out); err != nil {
		log.Fatalf("write workbook: %v", err)
	}

	log.Printf("exported catalog to %s", *out)
}
