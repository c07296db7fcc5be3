package main

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/migrations"
)

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		discovered, err := config.Discover()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		path = discovered
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openDB opens the registry database and applies migrations so commands
// work against a fresh install.
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
