package server

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/bulletin"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/pipeline"
)

// Parse runs a document synchronously and returns the validated bulletin.
func (s *BulletinService) Parse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(str(in, "path"))
	if path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	date := strings.TrimSpace(str(in, "date"))
	if err := common.ISODate("date", date); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Info("rpc.parse", "path", path, "date", date)
	runID, out, err := s.publisher.Publish(ctx, pipeline.Request{Path: path, Date: date})
	if err != nil {
		s.logger.Warn("rpc.parse.failed", "path", path, "run_id", runID, "error", err)
		return nil, common.ToStatus(err)
	}

	discards := make(map[string]int, len(out.Discards))
	for reason, n := range out.Discards {
		discards[string(reason)] = n
	}
	return toStruct(map[string]any{
		"runId":    runID.String(),
		"bulletin": out.Bulletin,
		"pages":    out.Pages,
		"lines":    out.Lines,
		"discards": discards,
		"warnings": out.Warnings,
		"method":   out.Method,
	})
}

// Stats loads a stored bulletin (latest when date is empty), filters its
// products and summarises them.
func (s *BulletinService) Stats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	date := strings.TrimSpace(str(in, "date"))
	category := strings.TrimSpace(str(in, "category"))
	if category != "" && category != constants.AllCategory {
		c, ok := constants.Canonicalize(category)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown category %q", category)
		}
		category = string(c)
	}

	b, err := s.prices.LatestBulletin(ctx, date)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	filtered := bulletin.Filter(b.Products, str(in, "search"), category)
	if filtered == nil {
		filtered = []entity.Product{}
	}

	return toStruct(map[string]any{
		"date":       b.Date,
		"source":     b.Source,
		"stats":      bulletin.ComputeStats(filtered),
		"categories": bulletin.Categories(b.Products),
		"products":   filtered,
	})
}

func (s *BulletinService) ListRuns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runs, err := s.runs.ListRecent(ctx, number(in, "limit", 20))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	if runs == nil {
		runs = []entity.Run{}
	}
	return toStruct(map[string]any{"runs": runs})
}
