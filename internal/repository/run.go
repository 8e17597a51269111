package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
)

// RunOutcome is what a finished run records.
type RunOutcome struct {
	Status       constants.RunStatus
	Pages        int
	Products     int
	Discarded    int
	ErrorMessage string
}

type RunRepository interface {
	Start(ctx context.Context, sourcePath, date string) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, out RunOutcome) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Run, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) Start(ctx context.Context, sourcePath, date string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.SQL.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO bulletin_run (id, source_path, bulletin_date, status, started_at) VALUES (?, ?, ?, ?, ?)`),
		id.String(), sourcePath, date, string(constants.RunStatusRunning), time.Now().UTC())
	if err != nil {
		r.log.Error("bulletin_run start failed", "path", sourcePath, "err", err)
		return uuid.Nil, common.NewAppError("DB_ERROR", "start run", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("bulletin_run started", "run_id", id, "path", sourcePath, "date", date)
	return id, nil
}

func (r *runRepo) Finish(ctx context.Context, id uuid.UUID, out RunOutcome) error {
	var errMsg sql.NullString
	if out.ErrorMessage != "" {
		errMsg = sql.NullString{String: out.ErrorMessage, Valid: true}
	}
	res, err := r.db.SQL.ExecContext(ctx, r.db.Rebind(
		`UPDATE bulletin_run SET status = ?, pages = ?, products = ?, discarded = ?, error_message = ?, finished_at = ? WHERE id = ?`),
		string(out.Status), out.Pages, out.Products, out.Discarded, errMsg, time.Now().UTC(), id.String())
	if err != nil {
		r.log.Error("bulletin_run finish failed", "run_id", id, "err", err)
		return common.NewAppError("DB_ERROR", "finish run", errors.Join(common.ErrDatabase, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("run %s", id), common.ErrNotFound)
	}
	if out.Status == constants.RunStatusFailed {
		r.log.Warn("bulletin_run finished (FAILED)", "run_id", id, "error", out.ErrorMessage)
	} else {
		r.log.Info("bulletin_run finished", "run_id", id, "status", out.Status, "products", out.Products)
	}
	return nil
}

const runColumns = `id, source_path, bulletin_date, status, pages, products, discarded, error_message, started_at, finished_at`

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.Rebind(`SELECT `+runColumns+` FROM bulletin_run WHERE id = ?`), id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("run %s", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get run", errors.Join(common.ErrDatabase, err))
	}
	return run, nil
}

func (r *runRepo) ListRecent(ctx context.Context, limit int) ([]entity.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(`SELECT `+runColumns+` FROM bulletin_run ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list runs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan run", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.Run, error) {
	var (
		run      entity.Run
		id       string
		errMsg   sql.NullString
		finished sql.NullTime
	)
	if err := s.Scan(&id, &run.SourcePath, &run.BulletinDate, &run.Status, &run.Pages,
		&run.Products, &run.Discarded, &errMsg, &run.StartedAt, &finished); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id %q: %w", id, err)
	}
	run.ID = parsed
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}
