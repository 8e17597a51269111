package server

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/ingest"
)

// IngestFile queues one document; processing happens on the worker pool.
func (s *BulletinService) IngestFile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(str(in, "path"))
	if path == "" {
		s.logger.Error("ingest request missing path")
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	date := strings.TrimSpace(str(in, "date"))
	if err := common.ISODate("date", date); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Info("starting file ingest", "path", path)
	r, err := s.ingestor.IngestPath(ctx, path, date, boolean(in, "force", false))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "ingest: %v", err)
	}
	s.logger.Info("file ingest succeeded", "path", r.SourcePath, "deduplicated", r.Deduplicated)
	return toStruct(result(r))
}

func (s *BulletinService) IngestDirectory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	root := strings.TrimSpace(str(in, "rootPath"))
	if root == "" {
		s.logger.Error("ingest directory request missing rootPath")
		return nil, status.Error(codes.InvalidArgument, "rootPath is required")
	}
	skipHidden := boolean(in, "skipHidden", true)

	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", skipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, root, skipHidden)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "ingest directory: %v", err)
	}
	s.logger.Info("directory ingest completed",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)

	items := make([]map[string]any, 0, len(results))
	for _, r := range results {
		items = append(items, result(r))
	}
	return toStruct(map[string]any{
		"scanned":      stats.Scanned,
		"matched":      stats.Matched,
		"succeeded":    stats.Succeeded,
		"deduplicated": stats.Deduplicated,
		"failed":       stats.Failed,
		"results":      items,
	})
}

func result(r ingest.IngestionResult) map[string]any {
	return map[string]any{
		"sourcePath":     r.SourcePath,
		"contentHashHex": r.HashHex,
		"deduplicated":   r.Deduplicated,
		"error":          r.Err,
	}
}
