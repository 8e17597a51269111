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

type PriceRepository interface {
	SaveBulletin(ctx context.Context, runID uuid.UUID, b entity.Bulletin) error
	// LatestBulletin returns the newest bulletin for date, or the newest overall
	// when date is empty.
	LatestBulletin(ctx context.Context, date string) (*entity.Bulletin, error)
	ListDates(ctx context.Context) ([]string, error)
	// DeleteBulletin removes the bulletin stored for runID and its products.
	DeleteBulletin(ctx context.Context, runID uuid.UUID) error
}

type priceRepo struct {
	db  *DB
	log *slog.Logger
}

func NewPriceRepository(db *DB, log *slog.Logger) PriceRepository {
	if log == nil {
		log = slog.Default()
	}
	return &priceRepo{db: db, log: log}
}

// SaveBulletin stores the bulletin and all its products in one transaction.
func (r *priceRepo) SaveBulletin(ctx context.Context, runID uuid.UUID, b entity.Bulletin) (err error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO bulletin (run_id, bulletin_date, source, created_at) VALUES (?, ?, ?, ?)`),
		runID.String(), b.Date, b.Source, time.Now().UTC()); err != nil {
		return common.NewAppError("DB_ERROR", "insert bulletin", errors.Join(common.ErrDatabase, err))
	}

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
		`INSERT INTO product_price (run_id, position, product_id, name, unit, category, price_min, price_max, mode, average, price_per_kilo, volatility_index, weight_kg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return common.NewAppError("DB_ERROR", "prepare product insert", errors.Join(common.ErrDatabase, err))
	}
	defer stmt.Close()

	for i, p := range b.Products {
		var perKilo sql.NullFloat64
		if p.PricePerKilo != nil {
			perKilo = sql.NullFloat64{Float64: *p.PricePerKilo, Valid: true}
		}
		var weight sql.NullInt64
		if p.WeightKg != nil {
			weight = sql.NullInt64{Int64: int64(*p.WeightKg), Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, runID.String(), i, p.ID, p.Name, p.Unit, string(p.Category),
			p.PriceMin, p.PriceMax, p.Mode, p.Average, perKilo, p.VolatilityIndex, weight); err != nil {
			return common.NewAppError("DB_ERROR", fmt.Sprintf("insert product %s", p.ID), errors.Join(common.ErrDatabase, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("bulletin saved", "run_id", runID, "date", b.Date, "products", len(b.Products))
	return nil
}

func (r *priceRepo) LatestBulletin(ctx context.Context, date string) (*entity.Bulletin, error) {
	query := `SELECT run_id, bulletin_date, source FROM bulletin ORDER BY bulletin_date DESC, created_at DESC LIMIT 1`
	args := []any{}
	if date != "" {
		query = `SELECT run_id, bulletin_date, source FROM bulletin WHERE bulletin_date = ? ORDER BY created_at DESC LIMIT 1`
		args = append(args, date)
	}

	var (
		runID string
		b     entity.Bulletin
	)
	err := r.db.SQL.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&runID, &b.Date, &b.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("no bulletin for date %q", date), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query bulletin", errors.Join(common.ErrDatabase, err))
	}

	products, err := r.products(ctx, runID)
	if err != nil {
		return nil, err
	}
	b.Products = products
	return &b, nil
}

func (r *priceRepo) products(ctx context.Context, runID string) ([]entity.Product, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(
		`SELECT product_id, name, unit, category, price_min, price_max, mode, average, price_per_kilo, volatility_index, weight_kg
		 FROM product_price WHERE run_id = ? ORDER BY position`), runID)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query products", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		var (
			p        entity.Product
			category string
			perKilo  sql.NullFloat64
			weight   sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &category, &p.PriceMin, &p.PriceMax,
			&p.Mode, &p.Average, &perKilo, &p.VolatilityIndex, &weight); err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan product", errors.Join(common.ErrDatabase, err))
		}
		p.Category = constants.Category(category)
		if perKilo.Valid {
			v := perKilo.Float64
			p.PricePerKilo = &v
		}
		if weight.Valid {
			w := int(weight.Int64)
			p.WeightKg = &w
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *priceRepo) ListDates(ctx context.Context) ([]string, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT DISTINCT bulletin_date FROM bulletin ORDER BY bulletin_date DESC`)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list dates", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan date", errors.Join(common.ErrDatabase, err))
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *priceRepo) DeleteBulletin(ctx context.Context, runID uuid.UUID) (err error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM product_price WHERE run_id = ?`), runID.String()); err != nil {
		return common.NewAppError("DB_ERROR", "delete products", errors.Join(common.ErrDatabase, err))
	}
	if _, err = tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM bulletin WHERE run_id = ?`), runID.String()); err != nil {
		return common.NewAppError("DB_ERROR", "delete bulletin", errors.Join(common.ErrDatabase, err))
	}
	if err = tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("bulletin deleted", "run_id", runID)
	return nil
}
