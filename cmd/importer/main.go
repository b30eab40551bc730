package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"bookcatalog/internal/catalog"
	"bookcatalog/internal/config"
	"bookcatalog/internal/importer"
	"bookcatalog/internal/logger"
	"bookcatalog/internal/storage"
	"bookcatalog/internal/storage/authors"
	"bookcatalog/internal/storage/books"
)

var (
	feedURL  = strings.TrimSpace(os.Getenv("FEED_URL"))
	maxPages = strings.TrimSpace(os.Getenv("FEED_MAX_PAGES"))
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}

	err = logger.SetupSLog(os.Stderr, cfg.LogLevel, cfg.LogFormat, path.Dir(path.Dir(path.Dir(thisFile))), struct{}{})
	if err != nil {
		slog.Error("Failed to set up logging: " + err.Error())
		os.Exit(1)
	}

	if feedURL == "" {
		slog.Error("You need to specify FEED_URL env var")
		os.Exit(1)
	}

	feed, err := url.Parse(feedURL)
	if err != nil {
		slog.Error("Invalid URL in FEED_URL: " + err.Error())
		os.Exit(1)
	}

	pages := 0
	if maxPages != "" {
		pages, err = strconv.Atoi(maxPages)
		if err != nil || pages < 0 {
			slog.Error("Invalid FEED_MAX_PAGES, non-negative integer expected")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to parse DATABASE_URL: " + err.Error())
		os.Exit(1)
	}

	pgCfg.ConnConfig.Tracer = logger.NewPGXTracer(slog.Default())

	pg, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		slog.Error("failed to create postgres pool: " + err.Error())
		os.Exit(1)
	}
	defer pg.Close()

	if cfg.AutoMigrate {
		if err := storage.Migrate(ctx, pg, slog.Default()); err != nil {
			slog.Error("Failed to apply schema: " + err.Error())
			os.Exit(1)
		}
	}

	im := importer.Importer{
		Client: &http.Client{Timeout: time.Minute},
		Logger: slog.Default(),
		Books: catalog.NewService(
			authors.NewPGXRepository(pg, slog.Default()),
			books.NewPGXRepository(pg, slog.Default()),
			slog.Default(),
		),
		MaxPages: pages,
	}

	stats, err := im.Import(ctx, feed)
	if err != nil {
		slog.Error("Import failed: "+err.Error(), slog.Int("created", stats.Created))
		pg.Close()
		os.Exit(1)
	}

	slog.Info("Import finished",
		slog.Int("pages", stats.Pages),
		slog.Int("created", stats.Created),
		slog.Int("skipped", stats.Skipped),
		slog.Int("rejected", stats.Rejected))
}
