package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"jsonlkit/internal/config"
	"jsonlkit/internal/locker"
	"jsonlkit/pkg/human"
	"jsonlkit/pkg/jsonl"
)

// Ext is the file extension of stored datasets.
const Ext = ".jsonl"

var (
	// ErrInvalidName is returned for empty names or names escaping the data dir.
	ErrInvalidName = errors.New("invalid dataset name")
	// ErrNotFound is returned when a dataset does not exist.
	ErrNotFound = errors.New("dataset not found")
)

// Entry describes a stored dataset.
type Entry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"human_size"`
	Modified  time.Time `json:"modified"`
}

// Store keeps named JSONL datasets under the configured data directory.
type Store struct {
	cfg    *config.Config
	locks  *locker.KeyedLocker
	logger *slog.Logger
}

// New creates a store bound to configuration.
func New(cfg *config.Config, locks *locker.KeyedLocker, logger *slog.Logger) *Store {
	return &Store{cfg: cfg, locks: locks, logger: logger.With("component", "store")}
}

// Resolve maps a dataset name to its file path, rejecting traversal.
func (s *Store) Resolve(name string) (string, string, error) {
	prepared := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(name)), "/")
	prepared = strings.TrimSuffix(prepared, Ext)
	clean := filepath.ToSlash(filepath.Clean(prepared))
	if clean == "." || clean == "" {
		return "", "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("%w: %q escapes data directory", ErrInvalidName, name)
	}
	full := filepath.Join(s.cfg.Storage.DataDir, filepath.FromSlash(clean)+Ext)
	return clean, full, nil
}

// Write replaces the dataset with records.
func (s *Store) Write(name string, records []any) (Entry, error) {
	clean, path, err := s.Resolve(name)
	if err != nil {
		return Entry{}, err
	}
	release := s.locks.Lock(path)
	defer release()

	if err := jsonl.WriteFile(path, records); err != nil {
		return Entry{}, fmt.Errorf("store dataset %s: %w", clean, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat dataset %s: %w", clean, err)
	}
	entry := s.entry(clean, info)
	s.logger.Info("dataset written",
		slog.String("name", clean),
		slog.Int("records", len(records)),
		slog.String("size", entry.HumanSize))
	return entry, nil
}

// Read decodes every record of the dataset.
func (s *Store) Read(name string) ([]any, error) {
	clean, path, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	release := s.locks.Lock(path)
	defer release()

	records, err := jsonl.ReadFile[any](path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, err
	}
	return records, nil
}

// Raw returns the stored JSONL text and its entry.
func (s *Store) Raw(name string) ([]byte, Entry, error) {
	clean, path, err := s.Resolve(name)
	if err != nil {
		return nil, Entry{}, err
	}
	release := s.locks.Lock(path)
	defer release()

	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, Entry{}, fmt.Errorf("read dataset %s: %w", clean, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("stat dataset %s: %w", clean, err)
	}
	return payload, s.entry(clean, info), nil
}

// Delete removes the dataset.
func (s *Store) Delete(name string) error {
	clean, path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	release := s.locks.Lock(path)
	defer release()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return fmt.Errorf("delete dataset %s: %w", clean, err)
	}
	s.logger.Info("dataset deleted", slog.String("name", clean))
	return nil
}

// List returns every dataset sorted by name. A missing data directory
// yields an empty list.
func (s *Store) List() ([]Entry, error) {
	root := s.cfg.Storage.DataDir
	entries := make([]Entry, 0, 16)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != Ext {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name, ok := datasetName(root, path)
		if !ok {
			return nil
		}
		entries = append(entries, s.entry(name, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Store) entry(name string, info os.FileInfo) Entry {
	return Entry{
		Name:      name,
		Size:      info.Size(),
		HumanSize: s.formatSize(info.Size()),
		Modified:  info.ModTime().UTC(),
	}
}

func (s *Store) formatSize(n int64) string {
	return human.Format(float64(n), s.cfg.Format.Metric, s.cfg.Format.DecimalPlaces)
}

func datasetName(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel)), true
}

// StartCleanup launches periodic retention cleanup until the context is cancelled.
func (s *Store) StartCleanup(ctx context.Context) {
	interval := s.cfg.Retention.CleanupInterval.Duration
	if interval <= 0 || s.cfg.Retention.TTL.Duration <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		if err := s.cleanupOnce(ctx); err != nil {
			s.logger.Error("dataset cleanup failed", slog.Any("error", err))
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.cleanupOnce(ctx); err != nil {
					s.logger.Error("dataset cleanup failed", slog.Any("error", err))
				}
			}
		}
	}()
}

type cleanupStats struct {
	files int
	bytes int64
}

func (s *Store) cleanupOnce(ctx context.Context) error {
	root := s.cfg.Storage.DataDir
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	ttl := s.cfg.Retention.TTL.Duration
	if ttl <= 0 {
		return nil
	}
	s.logger.Info("dataset cleanup started", slog.String("root", root))
	stats := cleanupStats{}
	dirs := make([]string, 0, 16)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if filepath.Ext(path) != Ext {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if time.Since(info.ModTime()) <= ttl {
			return nil
		}
		release := s.locks.Lock(path)
		defer release()
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("remove expired dataset", slog.String("path", path), slog.Any("error", err))
			}
			return nil
		}
		stats.files++
		stats.bytes += info.Size()
		return nil
	})
	if walkErr != nil {
		return walkErr
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if dir == root {
			continue
		}
		if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, syscall.ENOTEMPTY) && !errors.Is(err, syscall.EEXIST) {
			s.logger.Warn("remove dataset dir", slog.String("path", dir), slog.Any("error", err))
		}
	}
	s.logger.Info(
		"dataset cleanup finished",
		slog.Int("files_removed", stats.files),
		slog.String("bytes_removed", s.formatSize(stats.bytes)),
		slog.Int64("raw_bytes_removed", stats.bytes),
	)
	return nil
}
