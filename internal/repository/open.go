// Package repository selects the schedule entry store configured for the process.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/config"
	"github.com/mamadbah2/pumpschedule/internal/domain/repositories"
	"github.com/mamadbah2/pumpschedule/internal/repository/csvfile"
	"github.com/mamadbah2/pumpschedule/internal/repository/memory"
	"github.com/mamadbah2/pumpschedule/internal/repository/mongodb"
	"github.com/mamadbah2/pumpschedule/internal/repository/sqlite"
)

// Open returns the entry repository selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.EntryRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		repo repositories.EntryRepository
		err  error
	)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		repo = memory.NewEntryRepository()
	case config.DriverFile:
		var r *csvfile.Repository
		if r, err = csvfile.Open(cfg.Store.Path, logger.Named("csvfile")); err == nil {
			repo = r
		}
	case config.DriverSQLite:
		var r *sqlite.Repository
		if r, err = sqlite.Open(ctx, cfg.Store.Path, cfg.Store.BusyTimeout, logger.Named("sqlite")); err == nil {
			repo = r
		}
	case config.DriverMongoDB:
		var r *mongodb.MongoDBRepository
		if r, err = mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.Collection, logger.Named("mongodb")); err == nil {
			repo = r
		}
	default:
		err = fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	logger.Info("entry store ready", zap.String("driver", cfg.Store.Driver))
	return repo, nil
}
