package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mamadbah2/pumpschedule/internal/config"
)

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		driver string
		path   string
	}{
		{config.DriverMemory, ""},
		{config.DriverFile, filepath.Join(dir, "schedule.csv")},
		{config.DriverSQLite, filepath.Join(dir, "schedule.db")},
	}

	for _, tc := range cases {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := config.Config{Store: config.StoreConfig{Driver: tc.driver, Path: tc.path}}
			repo, err := Open(context.Background(), cfg, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := repo.Close(context.Background()); err != nil {
				t.Fatalf("Close: %v", err)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Config{Store: config.StoreConfig{Driver: "redis"}}
	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
