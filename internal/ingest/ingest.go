package ingest

import "context"

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	HashHex      string
	Deduplicated bool // same content already submitted; not queued again
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the service depends on.
type Ingestor interface {
	// IngestPath submits a single bulletin document.
	IngestPath(ctx context.Context, path, date string, force bool) (IngestionResult, error)
	// IngestDirectory submits all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
