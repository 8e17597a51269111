package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/price-bulletin/internal/async"
)

// FSIngestor reads from the local filesystem and submits documents to a queue.
// Content already submitted (by SHA-256) is skipped unless forced, so editors
// and sync tools that rewrite a file do not trigger a second run.
type FSIngestor struct {
	queue  async.Queue
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // hash -> first path
}

func NewFSIngestor(q async.Queue, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{queue: q, logger: logger, seen: make(map[string]string)}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path, date string, force bool) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	if !AllowedExt(filepath.Ext(abs)) {
		return out, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(abs))
	}

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = hex.EncodeToString(sum)

	i.mu.Lock()
	first, dup := i.seen[out.HashHex]
	if !dup {
		i.seen[out.HashHex] = abs
	}
	i.mu.Unlock()
	if dup && !force {
		i.logger.Info("ingest.deduplicated", "path", abs, "first_path", first, "hash", out.HashHex)
		out.Deduplicated = true
		return out, nil
	}

	job := async.Job{Path: abs, Date: date, Force: force, SubmittedAt: time.Now().UTC()}
	if err := i.queue.Enqueue(ctx, job); err != nil {
		i.forget(out.HashHex)
		return out, fmt.Errorf("enqueue %s: %w", abs, err)
	}
	return out, nil
}

func (i *FSIngestor) forget(hash string) {
	i.mu.Lock()
	delete(i.seen, hash)
	i.mu.Unlock()
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path, "", false)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
