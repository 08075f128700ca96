// Package engine orchestrates one reconciliation run: load ledger and
// statement, classify, rebuild the audit sheet, match tenants, accumulate,
// persist.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwerk/mietflow/internal/classify"
	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/ledger"
	"github.com/rentwerk/mietflow/internal/match"
	"github.com/rentwerk/mietflow/internal/model"
	"github.com/rentwerk/mietflow/internal/report"
	"github.com/rentwerk/mietflow/internal/statement"
)

// Config bundles the engine's tunables. All defaults reproduce the layout
// and keyword sets the ledger has been maintained with.
type Config struct {
	Workbook   ledger.WorkbookConfig
	Slots      ledger.Slots
	Columns    statement.Columns
	Classifier classify.Config
	Matcher    match.Config
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Workbook:   ledger.DefaultWorkbookConfig(),
		Slots:      ledger.DefaultSlots(),
		Columns:    statement.DefaultColumns(),
		Classifier: classify.DefaultConfig(),
		Matcher:    match.DefaultConfig(),
	}
}

// Ledger is the workbook surface the engine drives. *ledger.Workbook
// implements it; tests substitute an in-memory fake.
type Ledger interface {
	ledger.CellStore
	report.Sink
	TenantRows() ([]model.TenantRow, error)
	OwnerColumn() ([]string, error)
	Save(path string) error
	Close() error
}

// Summary reports what one run did.
type Summary struct {
	Transactions    int
	Postable        int
	TenantsMatched  int
	Posted          int
	Duplicates      int
	SkippedNoAmount int
	SkippedNoMonth  int
	PostedTotal     decimal.Decimal
	ByClass         map[model.PaymentClass]int
	StartedAt       time.Time
	OutputPath      string
}

// Engine runs reconciliations. Single-threaded by design: exactly one writer
// ever mutates the ledger, and audit log order must follow processing order.
type Engine struct {
	cfg        Config
	classifier *classify.Classifier
	matcher    *match.Matcher
	logger     *slog.Logger

	// Progress, when set, is called after each processed tenant row.
	Progress func(done, total int)
}

// New creates an engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        cfg,
		classifier: classify.New(cfg.Classifier),
		matcher:    match.New(cfg.Matcher),
		logger:     logger,
	}
}

// Reconcile runs the full file-to-file flow: open the ledger workbook, read
// the statement, apply all matched transactions, and save the artifact to
// outPath. Any fatal error leaves no artifact behind; the mutated in-memory
// workbook is simply discarded.
func (e *Engine) Reconcile(ctx context.Context, ledgerPath, statementPath, outPath string) (*Summary, error) {
	wb, err := ledger.OpenWorkbook(ledgerPath, e.cfg.Workbook)
	if err != nil {
		return nil, common.NewUserError("Mieterliste konnte nicht geöffnet werden", err)
	}
	defer func() { _ = wb.Close() }()

	txns, err := statement.Read(statementPath, e.cfg.Columns)
	if err != nil {
		return nil, common.NewUserError("Kontoauszug konnte nicht gelesen werden", err)
	}

	summary, err := e.apply(ctx, wb, txns)
	if err != nil {
		return nil, err
	}

	if err := wb.Save(outPath); err != nil {
		return nil, common.NewUserError("Ergebnisdatei konnte nicht erstellt werden", err)
	}
	summary.OutputPath = outPath

	e.logger.Info("reconciliation completed",
		"transactions", summary.Transactions,
		"postable", summary.Postable,
		"tenants_matched", summary.TenantsMatched,
		"posted", summary.Posted,
		"duplicates", summary.Duplicates,
		"total", summary.PostedTotal.StringFixed(2),
		"output", outPath)
	return summary, nil
}

// apply mutates the in-memory workbook: derive, audit sheet, match,
// accumulate. Per-row parse failures and matching misses are non-fatal; only
// workbook access errors abort.
func (e *Engine) apply(ctx context.Context, wb Ledger, txns []*model.Transaction) (*Summary, error) {
	summary := &Summary{
		Transactions: len(txns),
		ByClass:      make(map[model.PaymentClass]int),
		StartedAt:    time.Now().UTC(),
	}

	e.classifier.DeriveAll(txns)
	for _, t := range txns {
		summary.ByClass[t.Class]++
	}

	pool, err := report.BuildAuditSheet(wb, txns)
	if err != nil {
		return nil, err
	}
	summary.Postable = len(pool)

	tenants, err := wb.TenantRows()
	if err != nil {
		return nil, err
	}
	column, err := wb.OwnerColumn()
	if err != nil {
		return nil, err
	}
	index := match.BuildIndex(column)
	acc := ledger.NewAccumulator(wb, e.cfg.Slots)

	for i, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Progress != nil {
			e.Progress(i+1, len(tenants))
		}
		if tenant.Owner == "" {
			continue
		}
		row, ok := index.Row(tenant.Owner)
		if !ok {
			continue
		}
		tenant.Row = row

		matched := e.matcher.Transactions(tenant, pool)
		if len(matched) == 0 {
			continue
		}
		summary.TenantsMatched++

		for _, t := range matched {
			status, err := acc.Post(row, t)
			if err != nil {
				return nil, err
			}
			switch status {
			case ledger.StatusPosted:
				summary.Posted++
				summary.PostedTotal = summary.PostedTotal.Add(*t.Amount)
			case ledger.StatusDuplicate:
				summary.Duplicates++
				e.logger.Debug("duplicate skipped",
					"tenant", tenant.Owner,
					"date", t.DisplayDate(),
					"amount", t.Amount.StringFixed(2))
			case ledger.StatusNoAmount:
				summary.SkippedNoAmount++
			case ledger.StatusNoMonth:
				summary.SkippedNoMonth++
			}
		}
	}

	return summary, nil
}
