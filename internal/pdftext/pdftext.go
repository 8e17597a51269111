// Package pdftext reads the text layer of a bulletin document. PDFs go through
// pdftotext in layout mode, with a pure-Go reader as fallback; plain text files
// are read as is. No OCR and no correction of the extracted text happens here.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
)

const (
	MethodPdftotext = "pdftotext"
	MethodFallback  = "pdf-go"
	MethodPlainText = "plain-text"
)

type Config struct {
	Pdftotext       string        // binary name or absolute path; if empty -> "pdftotext"
	MaxPages        int           // 0 = no limit
	Timeout         time.Duration // per document; 0 = none
	DisableFallback bool
}

type Result struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.TEXT
	Method     string
	Duration   time.Duration
	Warnings   []string
}

type Extractor struct {
	cfg      Config
	runner   Runner
	fallback func(path string) (string, int, error)
	logger   *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, fallback: readPlainText, logger: logger}
}

// WithRunner replaces the command runner; used by tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, common.NewAppError("DOCUMENT_NOT_FOUND", path, common.ErrDocumentNotFound)
		}
		return Result{}, common.NewAppError("DOCUMENT_UNREADABLE", fmt.Sprintf("stat %s: %v", path, err), common.ErrDocumentUnreadable)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("pdftext.extract.start", "path", path, "ext", ext)

	var (
		res Result
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.TEXT:
		res, err = e.readText(path)
	default:
		return Result{}, common.NewAppError("UNSUPPORTED_FORMAT", fmt.Sprintf("unsupported extension %q", ext), common.ErrInvalidInput)
	}
	if err != nil {
		return res, err
	}

	res.Text = Normalize(res.Text)
	res = e.capPages(res)
	if strings.TrimSpace(strings.ReplaceAll(res.Text, "\f", "")) == "" {
		res.Warnings = append(res.Warnings, "document has no text layer")
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	res := Result{SourceType: constants.PDF}

	text, pages, warns, err := e.pdfToText(ctx, path)
	if err == nil {
		res.Text, res.Pages, res.Method = text, pages, MethodPdftotext
		res.Warnings = warns
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("pdftotext %s: %w", path, ctxErr)
	}
	res.Warnings = append(res.Warnings, fmt.Sprintf("pdftotext failed: %v", err))
	res.Warnings = append(res.Warnings, warns...)
	if e.cfg.DisableFallback {
		return res, common.NewAppError("DOCUMENT_UNREADABLE", fmt.Sprintf("pdftotext %s", path), errors.Join(common.ErrDocumentUnreadable, err))
	}

	e.logger.Warn("pdftext.pdftotext.failed", "path", path, "error", err)
	text, pages, ferr := e.fallback(path)
	if ferr != nil {
		return res, common.NewAppError("DOCUMENT_UNREADABLE", fmt.Sprintf("read %s", path), errors.Join(common.ErrDocumentUnreadable, err, ferr))
	}
	res.Text, res.Pages, res.Method = text, pages, MethodFallback
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, nonEmpty(string(errb)), err
	}
	text = string(out)
	// pdftotext terminates every page with a form feed
	pages = strings.Count(text, "\f")
	if pages == 0 || !strings.HasSuffix(text, "\f") {
		pages++
	}
	return text, pages, nil, nil
}

func (e *Extractor) readText(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, common.NewAppError("DOCUMENT_UNREADABLE", fmt.Sprintf("read %s: %v", path, err), common.ErrDocumentUnreadable)
	}
	text := string(b)
	return Result{
		Text:       text,
		Pages:      1 + strings.Count(strings.TrimRight(text, "\f"), "\f"),
		SourceType: constants.TEXT,
		Method:     MethodPlainText,
	}, nil
}

// capPages drops pages beyond cfg.MaxPages.
func (e *Extractor) capPages(res Result) Result {
	if e.cfg.MaxPages <= 0 || res.Pages <= e.cfg.MaxPages {
		return res
	}
	pages := strings.SplitAfter(res.Text, "\f")
	if len(pages) > e.cfg.MaxPages {
		res.Text = strings.Join(pages[:e.cfg.MaxPages], "")
	}
	res.Warnings = append(res.Warnings, fmt.Sprintf("truncated to %d of %d pages", e.cfg.MaxPages, res.Pages))
	res.Pages = e.cfg.MaxPages
	return res
}

func nonEmpty(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return []string{s}
}
