package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path"
	"runtime"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"bookcatalog/internal/catalog"
	"bookcatalog/internal/config"
	"bookcatalog/internal/logger"
	"bookcatalog/internal/response"
	"bookcatalog/internal/server"
	"bookcatalog/internal/storage"
	"bookcatalog/internal/storage/authors"
	"bookcatalog/internal/storage/books"
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}

	err = logger.SetupSLog(os.Stderr, cfg.LogLevel, cfg.LogFormat, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey)
	if err != nil {
		slog.Error("Failed to set up logging: " + err.Error())
		os.Exit(1)
	}

	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to parse DATABASE_URL: " + err.Error())
		os.Exit(1)
	}

	pgCfg.ConnConfig.Tracer = logger.NewPGXTracer(slog.Default())

	pg, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		slog.Error("failed to create postgres pool: " + err.Error())
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		if err := storage.Migrate(context.Background(), pg, slog.Default()); err != nil {
			slog.Error("Failed to apply schema: " + err.Error())
			pg.Close()
			os.Exit(1)
		}
	}

	svc := catalog.NewService(
		authors.NewPGXRepository(pg, slog.Default()),
		books.NewPGXRepository(pg, slog.Default()),
		slog.Default(),
	)

	r := server.Router(svc, &response.Responder{DebugMode: cfg.DebugMode}, server.Options{
		AppName:      cfg.AppName,
		RateLimitRPS: cfg.RateLimitRPS,
	})

	slog.Info(cfg.AppName + " started on " + cfg.BindAddr)

	err = http.ListenAndServe(cfg.BindAddr, r)
	pg.Close()
	slog.Error("aborting: " + err.Error())
	os.Exit(1)
}
