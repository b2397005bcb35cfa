package flowrate

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Source serves the active rate table and swaps it when the backing file
// changes. The zero value is not usable; call NewSource.
type Source struct {
	path   string
	table  atomic.Pointer[Table]
	logger *zap.Logger
}

// NewSource returns a Source backed by path. An empty path serves the default
// table and never reloads.
func NewSource(path string, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{path: strings.TrimSpace(path), logger: logger}

	if s.path == "" {
		s.table.Store(Default())
		return s, nil
	}

	t, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.table.Store(t)
	return s, nil
}

// Resolve delegates to the active table.
func (s *Source) Resolve(product, company string) (float64, error) {
	return s.table.Load().Resolve(product, company)
}

// Table returns the active table.
func (s *Source) Table() *Table {
	return s.table.Load()
}

// Reload re-reads the backing file. A file that fails to parse leaves the
// previous table active.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	t, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.table.Store(t)
	s.logger.Info("flow rate table reloaded", zap.String("path", s.path), zap.Strings("products", t.Products()))
	return nil
}

// Watch reloads the table whenever the backing file is written, until ctx is
// done.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	file := filepath.Base(s.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	debounce := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			if err := s.Reload(); err != nil {
				s.logger.Warn("flow rate reload rejected", zap.String("path", s.path), zap.Error(err))
			}
		})
	}

	s.logger.Debug("flow rate watcher started", zap.String("path", s.path))
	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("flow rate watch error", zap.Error(err))
		}
	}
}
