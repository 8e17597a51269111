package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/price-bulletin/internal/bulletin"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/parser"
)

// ParseStage turns page lines into a validated bulletin.
type ParseStage struct {
	Parser        *parser.Parser
	Assembler     *bulletin.Assembler
	ParallelPages bool
	Logger        *slog.Logger
}

func NewParseStage(p *parser.Parser, a *bulletin.Assembler, parallel bool, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Parser: p, Assembler: a, ParallelPages: parallel, Logger: logger}
}

// Run parses, assembles and validates. The returned parser.Result is filled even
// when validation rejects the bulletin.
func (s *ParseStage) Run(ctx context.Context, date string, pages [][]string) (entity.Bulletin, parser.Result, error) {
	var (
		res parser.Result
		err error
	)
	if s.ParallelPages && len(pages) > 1 {
		res, err = s.Parser.ParsePages(ctx, pages)
		if err != nil {
			return entity.Bulletin{}, res, err
		}
	} else {
		var lines []string
		for _, page := range pages {
			lines = append(lines, page...)
		}
		res = s.Parser.Parse(lines)
	}

	for reason, n := range res.Discards {
		s.Logger.Debug("parser.discard", "reason", string(reason), "count", n)
	}

	b := s.Assembler.Assemble(date, res.Candidates)
	if v := bulletin.Validate(b); !v.Valid {
		for _, violation := range v.Violations {
			s.Logger.Error("pipeline.validate.violation", "path", violation.Path, "message", violation.Message)
		}
		return entity.Bulletin{}, res, v.Err()
	}
	return b, res, nil
}
