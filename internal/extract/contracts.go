package extract

import (
	"context"
	"time"
)

// TextExtractor is stage 1: document -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "TEXT"
	Method     string // "pdftotext" | "pdf-go" | "plain-text"
	Duration   time.Duration
	Warnings   []string
}
