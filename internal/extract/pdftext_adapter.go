package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/price-bulletin/internal/pdftext"
)

type PDFTextAdapter struct {
	e      *pdftext.Extractor
	logger *slog.Logger
}

func NewPDFTextAdapter(e *pdftext.Extractor, logger *slog.Logger) *PDFTextAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextAdapter{e: e, logger: logger}
}

func (a *PDFTextAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, path)
	for _, w := range r.Warnings {
		a.logger.Warn("extract.warning", "path", path, "warning", w)
	}
	return TextExtractionResult{
		Text:       r.Text,
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
	}, err
}
