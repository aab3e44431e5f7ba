package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"user-directory-server/internal/config"
	"user-directory-server/internal/db"
)

// Usage: migrate [up|down|status|version|reset]. Defaults to up.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dbConn, err := db.Connect(ctx, cfg.DBURL, 2)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	sqlDB := stdlib.OpenDBFromPool(dbConn.Pool)
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		logger.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}

	logger.Info("migration finished", "command", command)
}
