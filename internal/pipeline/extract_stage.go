package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/price-bulletin/internal/extract"
	"github.com/joseph-ayodele/price-bulletin/internal/parser"
)

// ExtractStage reads the document once and splits it into pages.
type ExtractStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewExtractStage(tx extract.TextExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{TextExtractor: tx, Logger: logger}
}

// Run returns the extraction summary and the page-split lines. There is no
// retry; a failed read aborts the run.
func (s *ExtractStage) Run(ctx context.Context, path string) (extract.TextExtractionResult, [][]string, error) {
	res, err := s.TextExtractor.Extract(ctx, path)
	if err != nil {
		return res, nil, fmt.Errorf("extract %s: %w", path, err)
	}
	pages := parser.SplitPages(res.Text)
	s.Logger.Debug("pipeline.extract.split", "path", path, "pages", len(pages), "reported_pages", res.Pages)
	return res, pages, nil
}
