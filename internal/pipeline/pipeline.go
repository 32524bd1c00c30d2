package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/climate-stress-service/internal/domain"
	"github.com/couchcryptid/climate-stress-service/internal/observability"
	"github.com/couchcryptid/climate-stress-service/internal/portfolio"
)

// ErrNotReady is returned by Run before a portfolio has been loaded.
var ErrNotReady = errors.New("portfolio has not been loaded yet")

const (
	// MaxPendingPublishes caps report publishes in flight. Reports beyond it
	// are dropped and counted as publish errors.
	MaxPendingPublishes = 8

	publishTimeout = 5 * time.Second
)

// PortfolioSource supplies the joined loan book.
type PortfolioSource interface {
	LoadOrGenerate() ([]domain.PortfolioRow, portfolio.Source)
}

// ReportPublisher ships a finished report downstream.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

// Pipeline loads the portfolio once and stresses it on demand.
type Pipeline struct {
	source    PortfolioSource
	publisher ReportPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	rows      atomic.Pointer[[]domain.PortfolioRow]

	pending  chan struct{}
	inflight sync.WaitGroup
}

// New creates a Pipeline. Pass a nil publisher to disable report publishing.
func New(source PortfolioSource, publisher ReportPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    source,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		pending:   make(chan struct{}, MaxPendingPublishes),
	}
}

// Load reads the portfolio from its source and makes it available to Run.
func (p *Pipeline) Load(_ context.Context) error {
	rows, src := p.source.LoadOrGenerate()
	if len(rows) == 0 {
		return errors.New("portfolio source returned no loans")
	}

	p.rows.Store(&rows)
	p.metrics.PortfolioLoads.WithLabelValues(string(src)).Inc()
	p.metrics.PortfolioLoans.Set(float64(len(rows)))
	p.logger.Info("portfolio ready", "loans", len(rows), "source", src)
	return nil
}

// CheckReadiness returns nil once the portfolio has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.rows.Load() == nil {
		return ErrNotReady
	}
	return nil
}

// Portfolio returns the loaded book, or nil before Load.
func (p *Pipeline) Portfolio() []domain.PortfolioRow {
	rows := p.rows.Load()
	if rows == nil {
		return nil
	}
	return *rows
}

// Run stresses the loaded portfolio under the scenario and returns the report.
func (p *Pipeline) Run(ctx context.Context, scenario domain.Scenario) (domain.Report, error) {
	rows := p.Portfolio()
	if rows == nil {
		return domain.Report{}, ErrNotReady
	}

	start := time.Now()
	report, err := domain.BuildReport(rows, scenario)
	if err != nil {
		p.metrics.StressErrors.Inc()
		p.logger.Error("stress run failed", "scenario", scenario.Key, "error", err)
		return domain.Report{}, fmt.Errorf("stress scenario %s: %w", scenario.Key, err)
	}
	p.metrics.StressDuration.Observe(time.Since(start).Seconds())
	p.metrics.StressRuns.WithLabelValues(scenario.Key).Inc()
	p.metrics.CriticalLoans.WithLabelValues(scenario.Key).Set(float64(report.Summary.CriticalCount))
	p.metrics.CapitalAtRiskCrores.WithLabelValues(scenario.Key).Set(report.Summary.CapitalAtRiskCrores().InexactFloat64())

	p.logger.Debug("stress run complete",
		"scenario", scenario.Key,
		"severity", scenario.Severity,
		"critical", report.Summary.CriticalCount,
		"capital_at_risk_crores", report.Summary.CapitalAtRiskCrores().StringFixed(2),
	)

	return report, nil
}

// Publish hands the report to the publisher in the background and returns
// immediately. The write is bounded by its own timeout and outlives ctx
// cancellation, so a finished request never aborts it. Failures are logged
// and counted.
func (p *Pipeline) Publish(ctx context.Context, report domain.Report) {
	if p.publisher == nil {
		return
	}

	select {
	case p.pending <- struct{}{}:
	default:
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("report publish dropped", "report_id", report.ID, "scenario", report.Scenario.Key, "pending", MaxPendingPublishes)
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer func() { <-p.pending }()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		p.publish(pubCtx, report)
	}()
}

// Drain waits for background publishes to finish or for ctx to expire.
func (p *Pipeline) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain report publishes: %w", ctx.Err())
	}
}

func (p *Pipeline) publish(ctx context.Context, report domain.Report) {
	if err := p.publisher.Publish(ctx, report); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("report publish failed", "report_id", report.ID, "scenario", report.Scenario.Key, "error", err)
		return
	}
	p.metrics.ReportsPublished.Inc()
}
