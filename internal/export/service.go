package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/price-bulletin/internal/bulletin"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
)

// BulletinReader loads a stored bulletin; empty date means the latest one.
type BulletinReader interface {
	LatestBulletin(ctx context.Context, date string) (*entity.Bulletin, error)
}

// Service writes validated bulletins to disk and renders XLSX workbooks.
type Service struct {
	bulletins BulletinReader
	logger    *slog.Logger
}

func NewService(bulletins BulletinReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bulletins: bulletins, logger: logger}
}

// WriteJSON writes b as indented JSON. The file is replaced atomically, so
// readers never see a half-written bulletin.
func (s *Service) WriteJSON(path string, b entity.Bulletin) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bulletin: %w", err)
	}
	data = append(data, '\n')
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	s.logger.Info("export.json.ok", "path", path, "products", len(b.Products))
	return nil
}

// WriteXLSX renders b and writes it to path.
func (s *Service) WriteXLSX(path string, b entity.Bulletin) error {
	data, err := s.BulletinXLSX(b)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ExportXLSX renders the stored bulletin for date (latest when empty).
func (s *Service) ExportXLSX(ctx context.Context, date string) ([]byte, error) {
	if s.bulletins == nil {
		return nil, fmt.Errorf("export: no bulletin store configured")
	}
	b, err := s.bulletins.LatestBulletin(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load bulletin: %w", err)
	}
	return s.BulletinXLSX(*b)
}

// BulletinXLSX returns an XLSX workbook (as bytes) with one row per product.
func (s *Service) BulletinXLSX(b entity.Bulletin) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Prices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"ID", "Product", "Unit", "Category",
		"Min", "Max", "Mode", "Average",
		"Weight (kg)", "Price/kg", "Volatility", "Level",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, p := range b.Products {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, p.ID)
		write(2, p.Name)
		write(3, p.Unit)
		write(4, string(p.Category))
		write(5, p.PriceMin)
		write(6, p.PriceMax)
		write(7, p.Mode)
		write(8, p.Average)
		if p.WeightKg != nil {
			write(9, *p.WeightKg)
		}
		if p.PricePerKilo != nil {
			write(10, *p.PricePerKilo)
		}
		write(11, p.VolatilityIndex)
		write(12, bulletin.VolatilityLevel(p.VolatilityIndex))
	}

	footer := len(b.Products) + 3
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer), "Source")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", footer), b.Source)
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", footer+1), "Date")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", footer+1), b.Date)

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 18)
	_ = f.SetColWidth(sheet, "D", "D", 12)
	_ = f.SetColWidth(sheet, "E", "J", 12)
	_ = f.SetColWidth(sheet, "K", "L", 11)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"date", b.Date,
		"rows", len(b.Products),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
