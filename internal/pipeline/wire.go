package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/price-bulletin/internal/bulletin"
	"github.com/joseph-ayodele/price-bulletin/internal/classify"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/extract"
	"github.com/joseph-ayodele/price-bulletin/internal/observability"
	"github.com/joseph-ayodele/price-bulletin/internal/parser"
	"github.com/joseph-ayodele/price-bulletin/internal/pdftext"
)

// NewProcessorFromConfig wires extraction and parsing from cfg, loading the
// category table and unit rules from disk when their paths are set.
func NewProcessorFromConfig(cfg *common.Config, metrics *observability.Metrics, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var mappings []classify.Mapping
	if path := cfg.Parser.CategoryTablePath; path != "" {
		m, err := classify.LoadMappingsFile(path)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("category table %s", path), err)
		}
		mappings = m
		logger.Info("pipeline.category_table.loaded", "path", path, "categories", len(m))
	}

	var units []parser.UnitRule
	if path := cfg.Parser.UnitRulesPath; path != "" {
		u, err := parser.LoadUnitRulesFile(path)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unit rules %s", path), err)
		}
		units = u
		logger.Info("pipeline.unit_rules.loaded", "path", path, "rules", len(u))
	}

	ex := pdftext.NewExtractor(pdftext.Config{
		Pdftotext: cfg.Extract.Pdftotext,
		MaxPages:  cfg.Extract.MaxPages,
		Timeout:   cfg.Extract.Timeout,
	}, logger)

	p := parser.New(parser.Config{UnitRules: units, DefaultUnit: cfg.Parser.DefaultUnit})
	return NewProcessor(logger,
		NewExtractStage(extract.NewPDFTextAdapter(ex, logger), logger),
		NewParseStage(p, bulletin.NewAssembler(classify.New(mappings)), cfg.Parser.ParallelPages, logger),
		metrics,
	), nil
}
