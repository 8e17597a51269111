package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/repository"
)

// BulletinWriter persists a validated bulletin to files.
type BulletinWriter interface {
	WriteJSON(path string, b entity.Bulletin) error
	WriteXLSX(path string, b entity.Bulletin) error
}

// Outputs says where a validated bulletin goes. Empty paths and nil
// repositories are skipped.
type Outputs struct {
	JSONPath string
	XLSXPath string
	Runs     repository.RunRepository
	Prices   repository.PriceRepository
	Writer   BulletinWriter
}

// Publisher runs the processor and hands a validated bulletin to its outputs.
// Nothing is written for a failed run besides the run record itself.
type Publisher struct {
	Processor *Processor
	Outputs   Outputs
	Logger    *slog.Logger
}

func NewPublisher(p *Processor, out Outputs, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{Processor: p, Outputs: out, Logger: logger}
}

// Publish returns the run id, the processing outcome and the first error hit.
func (p *Publisher) Publish(ctx context.Context, req Request) (uuid.UUID, Outcome, error) {
	date := req.Date
	if date == "" {
		date, _ = DateFromFilename(req.Path)
	}

	runID := uuid.New()
	if p.Outputs.Runs != nil {
		id, err := p.Outputs.Runs.Start(ctx, req.Path, date)
		if err != nil {
			return uuid.Nil, Outcome{}, err
		}
		runID = id
	}
	ctx = common.WithRunID(ctx, runID.String())

	out, err := p.Processor.Process(ctx, req)
	if err == nil {
		err = p.write(ctx, runID, out.Bulletin)
	}
	p.finish(ctx, runID, out, err)
	return runID, out, err
}

func (p *Publisher) write(ctx context.Context, runID uuid.UUID, b entity.Bulletin) error {
	if p.Outputs.Prices != nil {
		if err := p.Outputs.Prices.SaveBulletin(ctx, runID, b); err != nil {
			return err
		}
	}
	if err := p.writeFiles(b); err != nil {
		if p.Outputs.Prices != nil {
			if derr := p.Outputs.Prices.DeleteBulletin(context.WithoutCancel(ctx), runID); derr != nil {
				p.Logger.Error("publisher.rollback.failed", "run_id", runID, "error", derr)
				return errors.Join(err, derr)
			}
		}
		return err
	}
	return nil
}

// writeFiles writes the JSON artifact last, so it only appears once every
// other output has succeeded.
func (p *Publisher) writeFiles(b entity.Bulletin) error {
	if p.Outputs.Writer == nil {
		return nil
	}
	if p.Outputs.XLSXPath != "" {
		if err := p.Outputs.Writer.WriteXLSX(p.Outputs.XLSXPath, b); err != nil {
			return err
		}
	}
	if p.Outputs.JSONPath != "" {
		if err := p.Outputs.Writer.WriteJSON(p.Outputs.JSONPath, b); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) finish(ctx context.Context, runID uuid.UUID, out Outcome, runErr error) {
	if p.Outputs.Runs == nil {
		return
	}
	ro := repository.RunOutcome{
		Status:    constants.RunStatusValidated,
		Pages:     out.Pages,
		Products:  len(out.Bulletin.Products),
		Discarded: out.Discarded(),
	}
	switch {
	case runErr != nil:
		ro.Status = constants.RunStatusFailed
		ro.ErrorMessage = runErr.Error()
	case ro.Products == 0:
		ro.Status = constants.RunStatusEmpty
	}
	// the run record is bookkeeping; a cancelled request still gets its final status
	if err := p.Outputs.Runs.Finish(context.WithoutCancel(ctx), runID, ro); err != nil {
		p.Logger.Error("pipeline.run.finish.failed", "run_id", runID, "error", err)
	}
}
