// Package colstore is the persistent cache tier: one directory per
// (dataset, league, season) partition, one self-describing Arrow IPC file per
// cache entry. It exists because several providers only offer "return the
// whole season" semantics, and repeating those pulls is expensive.
//
// The store never surfaces an error to the caller. Any read or write fault
// degrades to a cache miss, since the cache is a performance concern, never
// a correctness one. A Bloom filter over every key ever written lets cold
// misses skip the disk probe entirely.
package colstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/statlinehq/statline/internal/stats/common/clock"
	"github.com/statlinehq/statline/internal/stats/common/log"
	"github.com/statlinehq/statline/internal/stats/domain"
)

const (
	fileExt = ".arrow"

	// Bloom sizing. The filter only suppresses disk probes, so a modest
	// false-positive rate costs one stat call, not correctness.
	bloomCapacity = 100_000
	bloomFPRate   = 0.01
)

// Store is the on-disk columnar tier.
type Store struct {
	root   string
	clk    clock.Clock
	logger log.Logger

	mu    sync.RWMutex
	bloom *bitsbloom.BloomFilter
}

// New opens (or creates) the partition root and seeds the Bloom filter from
// the keys already on disk.
func New(root string, clk clock.Clock, logger log.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Store{
		root:   root,
		clk:    clk,
		logger: logger,
		bloom:  bitsbloom.NewWithEstimates(bloomCapacity, bloomFPRate),
	}
	s.seedBloom()
	return s, nil
}

// seedBloom walks existing partition files so restarts keep their negative
// lookups accurate.
func (s *Store) seedBloom() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, part := range entries {
		if !part.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, part.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if key, ok := strings.CutSuffix(f.Name(), fileExt); ok {
				s.bloom.Add([]byte(key))
			}
		}
	}
}

// Get returns the stored table for key within partition if present and
// unexpired. All faults report a miss.
func (s *Store) Get(key, partition string) (domain.Table, bool) {
	s.mu.RLock()
	maybe := s.bloom.Test([]byte(key))
	s.mu.RUnlock()
	if !maybe {
		return domain.Table{}, false
	}

	path := s.entryPath(key, partition)
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, false
	}
	defer f.Close()

	table, createdAt, ttl, err := readTable(f)
	if err != nil {
		s.logger.Warn(map[string]any{"path": path, "error": err.Error()},
			"unreadable partition entry, treating as miss")
		return domain.Table{}, false
	}
	if s.clk.Now().After(createdAt.Add(ttl)) {
		_ = os.Remove(path)
		return domain.Table{}, false
	}
	return table, true
}

// Set persists table under key within partition. The write is atomic
// (temp file + rename) so a crashed writer never leaves a torn entry.
// Failures are logged and dropped.
func (s *Store) Set(key, partition string, table domain.Table, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	dir := filepath.Join(s.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		s.logger.Warn(map[string]any{"dir": dir, "error": err.Error()},
			"persistent cache write skipped")
		return
	}

	tmp, err := os.CreateTemp(dir, key+".tmp-*")
	if err != nil {
		s.logger.Warn(map[string]any{"dir": dir, "error": err.Error()},
			"persistent cache write skipped")
		return
	}
	tmpName := tmp.Name()

	if err := writeTable(tmp, table, s.clk.Now(), ttl); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		s.logger.Warn(map[string]any{"key": key, "error": err.Error()},
			"persistent cache encode failed")
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return
	}
	if err := os.Rename(tmpName, s.entryPath(key, partition)); err != nil {
		_ = os.Remove(tmpName)
		s.logger.Warn(map[string]any{"key": key, "error": err.Error()},
			"persistent cache rename failed")
		return
	}

	s.mu.Lock()
	s.bloom.Add([]byte(key))
	s.mu.Unlock()
}

// Delete removes the entry for key within partition, if present.
func (s *Store) Delete(key, partition string) {
	_ = os.Remove(s.entryPath(key, partition))
}

// DropPartition removes an entire (dataset, league, season) partition.
func (s *Store) DropPartition(partition string) {
	_ = os.RemoveAll(filepath.Join(s.root, partition))
}

func (s *Store) entryPath(key, partition string) string {
	return filepath.Join(s.root, partition, key+fileExt)
}
