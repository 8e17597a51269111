package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/observability"
	"github.com/joseph-ayodele/price-bulletin/internal/parser"
)

// Outcome labels used in metrics and run records.
const (
	OutcomeValidated = "validated"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

type Request struct {
	Path string
	Date string // empty: taken from the file name
}

type Outcome struct {
	Bulletin entity.Bulletin
	Method   string
	Pages    int
	Lines    int
	Discards map[parser.DiscardReason]int
	Warnings []string
	Duration time.Duration
}

// Discarded is the total number of scan steps that produced no product.
func (o Outcome) Discarded() int {
	n := 0
	for _, c := range o.Discards {
		n += c
	}
	return n
}

// Processor coordinates text extraction then parsing into one validated bulletin.
type Processor struct {
	Logger  *slog.Logger
	Extract *ExtractStage
	Parse   *ParseStage
	Metrics *observability.Metrics
}

func NewProcessor(logger *slog.Logger, ex *ExtractStage, parse *ParseStage, metrics *observability.Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extract: ex, Parse: parse, Metrics: metrics}
}

// Process runs one document end to end. Any error means no bulletin: callers
// must not persist anything from a failed run.
func (p *Processor) Process(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	log := p.Logger.With("run_id", common.RunIDFromContext(ctx), "path", req.Path)

	out, err := p.process(ctx, req, log)
	out.Duration = time.Since(start)

	outcome := OutcomeValidated
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case len(out.Bulletin.Products) == 0:
		outcome = OutcomeEmpty
	}
	discards := make(map[string]int, len(out.Discards))
	for reason, n := range out.Discards {
		discards[string(reason)] = n
	}
	p.Metrics.ObserveDiscards(discards)
	p.Metrics.ObserveRun(outcome, len(out.Bulletin.Products), out.Duration)

	if err != nil {
		log.Error("pipeline.run.failed", "error", err, "duration_ms", out.Duration.Milliseconds())
		return out, err
	}
	log.Info("pipeline.run.ok",
		"date", out.Bulletin.Date,
		"method", out.Method,
		"pages", out.Pages,
		"lines", out.Lines,
		"products", len(out.Bulletin.Products),
		"discarded", out.Discarded(),
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (p *Processor) process(ctx context.Context, req Request, log *slog.Logger) (Outcome, error) {
	date := req.Date
	if date == "" {
		d, ok := DateFromFilename(req.Path)
		if !ok {
			return Outcome{}, common.NewAppError("MISSING_DATE",
				fmt.Sprintf("no bulletin date given and none found in %q", filepath.Base(req.Path)), common.ErrInvalidInput)
		}
		date = d
	}

	// 1) text extraction, once
	res, pages, err := p.Extract.Run(ctx, req.Path)
	if err != nil {
		return Outcome{}, err
	}
	log.Info("pipeline.extract.ok", "method", res.Method, "pages", res.Pages, "duration_ms", res.Duration.Milliseconds())
	out := Outcome{Method: res.Method, Pages: res.Pages, Warnings: res.Warnings}

	// 2) parse, assemble, validate
	b, parsed, err := p.Parse.Run(ctx, date, pages)
	out.Lines = parsed.Lines
	out.Discards = parsed.Discards
	if err != nil {
		return out, err
	}
	if len(b.Products) == 0 {
		log.Warn("pipeline.run.empty", "lines", parsed.Lines)
	}
	out.Bulletin = b
	return out, nil
}

var reFileDate = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// DateFromFilename returns the last YYYY-MM-DD date in the file name, which is
// how the bulletin series names its publications.
func DateFromFilename(path string) (string, bool) {
	matches := reFileDate.FindAllStringSubmatch(filepath.Base(path), -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if _, err := time.Parse(time.DateOnly, matches[i][0]); err == nil {
			return matches[i][0], true
		}
	}
	return "", false
}
